package graph

import (
	"github.com/cs-au-dk/domgraph/utils"
	"github.com/cs-au-dk/domgraph/utils/hmap"
)

/*
	This package exposes utilities for working with graph structures.

	Graph structures appear in various places in this project and has prompted many
	ad-hoc implementations of standard graph algorithms.

	The goal of this package is to provide easy access to graph algorithms on
	data that has a graph representation.
	Currently this is done by only requiring the caller to provide a function
	describing the edge relation (and a key-value map factory for the node type).
*/

type Mapper[K any] interface {
	Get(key K) (any, bool)
	Set(key K, value any)
}

// TODO: There's currently no way to specify an additional type parameter on
// the function type for the types of values in the map.
type mapFactory[K any] func() Mapper[K]
type edgesOf[T any] func(node T) []T

type Graph[T any] struct {
	mapFactory  mapFactory[T]
	edgesOf     edgesOf[T]
	cachedEdges Mapper[T]
}

func (G Graph[T]) Edges(node T) []T {
	if cached, found := G.cachedEdges.Get(node); found {
		return cached.([]T)
	}

	es := G.edgesOf(node)
	G.cachedEdges.Set(node, es)
	return es
}

func Of[T any](mapFactory mapFactory[T], edgesOf edgesOf[T]) Graph[T] {
	return Graph[T]{
		mapFactory,
		edgesOf,
		mapFactory(),
	}
}

// Mapper implementation using Go's builtin maps
type mapMapper[K comparable] map[K]any

func (m mapMapper[K]) Get(key K) (any, bool) {
	value, ok := m[key]
	return value, ok
}

func (m mapMapper[K]) Set(key K, value any) {
	m[key] = value
}

func OfHashable[K comparable](edgesOf edgesOf[K]) Graph[K] {
	return Of(func() Mapper[K] { return mapMapper[K]{} }, edgesOf)
}

// hmapMapper adapts utils/hmap.Map, which is keyed by a caller-supplied
// immutable.Hasher instead of Go map-key comparability, to the Mapper
// interface.
type hmapMapper[K any] struct {
	m *hmap.Map[K, any]
}

func (h hmapMapper[K]) Get(key K) (any, bool) { return h.m.GetOk(key) }
func (h hmapMapper[K]) Set(key K, value any)  { h.m.Set(key, value) }

// OfHashableEq builds a Graph over vertex identities that are hashable and
// equality-comparable (utils.HashableEq) but not necessarily `comparable`
// in Go's sense, e.g. a value type wrapping a slice. This backs the vertex
// map with a chained hash map (utils/hmap) instead of a built-in Go map.
func OfHashableEq[K utils.HashableEq[K]](edgesOf edgesOf[K]) Graph[K] {
	return Of(func() Mapper[K] {
		return hmapMapper[K]{hmap.NewMap[any, K](utils.HashableHasher[K]())}
	}, edgesOf)
}
