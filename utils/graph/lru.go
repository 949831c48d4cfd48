package graph

import lru "github.com/hashicorp/golang-lru"

// CachedSuccessors wraps a successor enumerator in a bounded LRU cache, for
// callers whose successorsOf recomputes its answer from scratch on every
// call (e.g. one that re-derives CFG successors from SSA). Unlike
// Graph[T].cachedEdges, which grows without bound for the lifetime of the
// Graph, this cache evicts least-recently-used entries once it reaches
// size, which is the right default for a reusable library component whose
// caller doesn't control how large the underlying graph is.
//
// CachedSuccessors panics if the LRU cache itself cannot be constructed
// (size <= 0); that is a caller programming error, not a runtime
// condition to recover from.
func CachedSuccessors[T comparable](size int, successorsOf func(T) []T) func(T) []T {
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}

	return func(v T) []T {
		if cached, found := cache.Get(v); found {
			return cached.([]T)
		}

		succs := successorsOf(v)
		cache.Add(v, succs)
		return succs
	}
}
