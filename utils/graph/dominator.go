package graph

// Source: https://www.cs.princeton.edu/courses/archive/spr03/cs423/download/dominators.pdf
// (appendix B, pg. 139): the Lengauer-Tarjan dominator algorithm, with the
// bucket-drain-at-start optimization so that a vertex's bucket is visited
// exactly once and never needs clearing.

import (
	"errors"
	"fmt"

	"github.com/cs-au-dk/domgraph/utils"
	"github.com/cs-au-dk/domgraph/utils/hmap"
)

// Sentinel errors for the dominator analysis. EmptyGraph and InvalidGraph
// are contract violations at construction time and are reported via panic
// (wrapping one of these); UnknownVertex is returned as an error from the
// query surface, since queries are the one part of this API a caller
// reasonably feeds unvalidated, possibly-wrong vertices after the fact.
var (
	ErrEmptyGraph    = errors.New("dominators: empty graph")
	ErrInvalidGraph  = errors.New("dominators: invalid graph")
	ErrUnknownVertex = errors.New("dominators: unknown vertex")
)

// noIndex marks the absence of a DFS index: the unset ancestor of a virtual
// forest root, and, by convention, the parent of the entry.
const noIndex = -1

// Dominators holds the result of a dominator analysis rooted at a single
// entry vertex, reachable via some successor relation. Construction runs
// the full Lengauer-Tarjan computation; the result is immutable, and safe
// to query from multiple goroutines without synchronization.
type Dominators[T any] struct {
	vertex []T       // vertex[i]: the vertex with DFS index i
	index  Mapper[T] // vertex -> DFS index

	parent []int   // DFS spanning-tree parent; noIndex for the entry
	semi   []int   // DFS index of the semidominator, by DFS index
	idom   []int   // immediate dominator, by DFS index
	tree   [][]int // dominator-tree children, by DFS index
}

// Dominators runs a Lengauer-Tarjan dominator analysis on G rooted at
// entry. numVertices is an upper bound on the number of vertices reachable
// from entry; it need not be exact, only an upper bound.
//
// Panics with ErrEmptyGraph if numVertices is not positive or entry has no
// reachable vertices, and with ErrInvalidGraph if the successor enumerator
// reports more reachable vertices than numVertices promised.
func (G Graph[T]) Dominators(entry T, numVertices int) *Dominators[T] {
	return newDominators(entry, numVertices, G.Edges, G.mapFactory)
}

// DominatorsOfComparable is a convenience constructor for vertex types that
// are directly usable as Go map keys, mirroring OfHashable's relationship
// to Of.
func DominatorsOfComparable[T comparable](entry T, numVertices int, successorsOf func(T) []T) *Dominators[T] {
	return newDominators(entry, numVertices, successorsOf, func() Mapper[T] { return mapMapper[T]{} })
}

// DominatorsOfHashable is the DominatorsOfComparable of vertex identities
// that are hashable and equality-comparable (utils.HashableEq) but not
// `comparable` in Go's sense, backing the vertex map with the same chained
// hash map (utils/hmap) OfHashableEq uses for general graphs.
func DominatorsOfHashable[T utils.HashableEq[T]](entry T, numVertices int, successorsOf func(T) []T) *Dominators[T] {
	return newDominators(entry, numVertices, successorsOf, func() Mapper[T] {
		return hmapMapper[T]{hmap.NewMap[any, T](utils.HashableHasher[T]())}
	})
}

func newDominators[T any](entry T, numVertices int, successorsOf func(T) []T, newMapper mapFactory[T]) *Dominators[T] {
	if numVertices <= 0 {
		panic(fmt.Errorf("%w: numVertices must be positive, got %d", ErrEmptyGraph, numVertices))
	}

	order, index, parent, predecessors := dfsNumber(entry, numVertices, successorsOf, newMapper)
	if len(order) == 0 {
		panic(fmt.Errorf("%w: entry has no reachable vertices", ErrEmptyGraph))
	}

	d := &Dominators[T]{
		vertex: order,
		index:  index,
		parent: parent,
	}
	d.computeDominators(predecessors)
	d.buildTree()
	return d
}

// frame is one level of an explicit-stack depth-first traversal: the
// vertex being explored, its successors (computed once, on first visit),
// and a cursor into them. Using an explicit stack instead of native
// recursion keeps DFS numbering safe on deep graphs, e.g. the CFG of
// generated or heavily inlined code.
type frame[T any] struct {
	vertex   T
	children []T
	next     int
}

// dfsNumber assigns every vertex reachable from entry a contiguous,
// zero-based DFS index (entry receives 0), and records, per index, its
// spanning-tree parent and its graph predecessors (also by index).
//
// The walk is iterative, but visits successors in exactly the order a
// recursive formulation would: children of the current frame are explored
// left to right, one per resumption of the loop, which is what makes the
// observable DFS numbering here bit-for-bit identical to a recursive walk
// over the same successor order.
func dfsNumber[T any](entry T, numVertices int, successorsOf func(T) []T, newMapper mapFactory[T]) (order []T, index Mapper[T], parent []int, predecessors [][]int) {
	index = newMapper()

	discover := func(v T) int {
		i := len(order)
		if i >= numVertices {
			panic(fmt.Errorf("%w: more than the declared %d vertices are reachable from the entry", ErrInvalidGraph, numVertices))
		}
		index.Set(v, i)
		order = append(order, v)
		parent = append(parent, noIndex)
		predecessors = append(predecessors, nil)
		return i
	}

	discover(entry)
	stack := []*frame[T]{{vertex: entry, children: successorsOf(entry)}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.children) {
			stack = stack[:len(stack)-1]
			continue
		}

		w := top.children[top.next]
		top.next++

		vIndex, _ := indexOf(index, top.vertex)

		wIndex, seen := indexOf(index, w)
		if !seen {
			wIndex = discover(w)
			parent[wIndex] = vIndex
			stack = append(stack, &frame[T]{vertex: w, children: successorsOf(w)})
		}

		predecessors[wIndex] = append(predecessors[wIndex], vIndex)
	}

	return order, index, parent, predecessors
}

func indexOf[T any](m Mapper[T], v T) (int, bool) {
	i, found := m.Get(v)
	if !found {
		return 0, false
	}
	return i.(int), true
}

// computeDominators runs the semidominator pass and dominator finalization,
// filling in d.semi and d.idom. d.parent must already be populated.
func (d *Dominators[T]) computeDominators(predecessors [][]int) {
	N := len(d.vertex)

	semi := make([]int, N)
	label := make([]int, N)
	ancestor := make([]int, N)
	bucket := make([][]int, N)
	idom := make([]int, N)

	for i := range semi {
		semi[i] = i
		label[i] = i
		ancestor[i] = noIndex
	}

	link := func(p, w int) {
		ancestor[w] = p
	}

	// compress walks the ancestor chain of v, iteratively rather than
	// recursively (for the same depth-safety reason as the DFS above),
	// updating label along the way so that label[v] always names the
	// vertex with the minimum semidominator on v's compressed path. The
	// observable effect on ancestor and label matches the textbook
	// recursive formulation exactly.
	compress := func(v int) {
		var path []int
		for u := v; ancestor[ancestor[u]] != noIndex; u = ancestor[u] {
			path = append(path, u)
		}

		for i := len(path) - 1; i >= 0; i-- {
			s := path[i]
			if semi[label[ancestor[s]]] < semi[label[s]] {
				label[s] = label[ancestor[s]]
			}
			ancestor[s] = ancestor[ancestor[s]]
		}
	}

	eval := func(v int) int {
		if ancestor[v] == noIndex {
			return v
		}
		compress(v)
		return label[v]
	}

	// Process every non-entry vertex in decreasing DFS order. bucket[0] is
	// never drained: a vertex whose semidominator is the entry keeps the
	// zero value of idom, which is the entry, the same answer a drain
	// would give.
	for w := N - 1; w >= 1; w-- {
		// Bucket drain for w: an optimization that processes w's bucket
		// at the start of its own iteration instead of its parent's
		// bucket at the end (the classical formulation), so each bucket
		// is visited exactly once and never needs clearing.
		for _, v := range bucket[w] {
			u := eval(v)
			if semi[u] < semi[v] {
				idom[v] = u
			} else {
				idom[v] = w
			}
		}

		for _, v := range predecessors[w] {
			u := eval(v)
			if semi[u] < semi[w] {
				semi[w] = semi[u]
			}
		}

		bucket[semi[w]] = append(bucket[semi[w]], w)
		link(d.parent[w], w)
	}

	idom[0] = 0
	for w := 1; w < N; w++ {
		if idom[w] != semi[w] {
			idom[w] = idom[idom[w]]
		}
	}

	d.semi = semi
	d.idom = idom
}

func (d *Dominators[T]) buildTree() {
	N := len(d.vertex)
	tree := make([][]int, N)
	for i := 1; i < N; i++ {
		p := d.idom[i]
		tree[p] = append(tree[p], i)
	}
	d.tree = tree
}

// ImmediateDominators returns a read-only view of the idom array, indexed
// by DFS index: the result's i-th entry is the DFS index of the immediate
// dominator of the vertex with DFS index i. Entry 0 (the entry) maps to
// itself by convention.
func (d *Dominators[T]) ImmediateDominators() []int {
	return d.idom
}

// DominatorTree returns the dominator tree's child lists, indexed by the
// DFS index of the parent. A leaf has no entry (a nil slice).
func (d *Dominators[T]) DominatorTree() [][]int {
	return d.tree
}

// Vertices returns the vertices reachable from the entry, in DFS order.
func (d *Dominators[T]) Vertices() []T {
	return d.vertex
}

// VertexIndices returns the vertex-to-DFS-index mapping backing this
// analysis. Returned as a Mapper rather than a Go map since T need not be
// `comparable` (see Hashable/HashableEq in package utils).
func (d *Dominators[T]) VertexIndices() Mapper[T] {
	return d.index
}

// Dominates reports whether a dominates b, by walking the idom chain from
// b upward until a is found or the entry's sentinel fixed point (idom[0] ==
// 0) is reached.
func (d *Dominators[T]) Dominates(a, b T) (bool, error) {
	aIdx, found := indexOf(d.index, a)
	if !found {
		return false, fmt.Errorf("%w: %v", ErrUnknownVertex, a)
	}
	bIdx, found := indexOf(d.index, b)
	if !found {
		return false, fmt.Errorf("%w: %v", ErrUnknownVertex, b)
	}

	if aIdx == bIdx {
		return true, nil
	}

	cur := d.idom[bIdx]
	for cur != 0 {
		if cur == aIdx {
			return true, nil
		}
		cur = d.idom[cur]
	}
	// cur == 0 (the entry); idom[0] == 0 is a fixed point, not a cycle.
	return cur == aIdx, nil
}

// DominatorsOf returns the vertices that dominate v, always beginning with
// the entry (even when v is the entry itself, or when the entry is v's
// only dominator, yielding a single-element result). The result excludes v.
func (d *Dominators[T]) DominatorsOf(v T) ([]T, error) {
	vIdx, found := indexOf(d.index, v)
	if !found {
		return nil, fmt.Errorf("%w: %v", ErrUnknownVertex, v)
	}

	dominators := []T{d.vertex[0]}
	idomIdx := d.idom[vIdx]
	for idomIdx != 0 {
		dominators = append(dominators, d.vertex[idomIdx])
		idomIdx = d.idom[idomIdx]
	}
	return dominators, nil
}

// treeDepth returns the number of idom-edges from i up to the entry.
func (d *Dominators[T]) treeDepth(i int) int {
	depth := 0
	for i != 0 {
		i = d.idom[i]
		depth++
	}
	return depth
}

// NearestCommonDominator returns the nearest common dominator of a and b:
// the deepest vertex dominating both, equivalently the lowest common
// ancestor of a and b in the dominator tree. Computed on demand by walking
// both vertices to equal tree depth and then climbing in lockstep; for
// many queries against one tree, prefer NearestCommonDominators.
func (d *Dominators[T]) NearestCommonDominator(a, b T) (T, error) {
	var zero T
	aIdx, found := indexOf(d.index, a)
	if !found {
		return zero, fmt.Errorf("%w: %v", ErrUnknownVertex, a)
	}
	bIdx, found := indexOf(d.index, b)
	if !found {
		return zero, fmt.Errorf("%w: %v", ErrUnknownVertex, b)
	}

	aDepth, bDepth := d.treeDepth(aIdx), d.treeDepth(bIdx)
	for aDepth > bDepth {
		aIdx = d.idom[aIdx]
		aDepth--
	}
	for bDepth > aDepth {
		bIdx = d.idom[bIdx]
		bDepth--
	}
	for aIdx != bIdx {
		aIdx = d.idom[aIdx]
		bIdx = d.idom[bIdx]
	}

	return d.vertex[aIdx], nil
}

// NearestCommonDominators answers many nearest-common-dominator queries
// against this dominator tree in a single traversal, using the same
// offline-LCA-via-union-find technique (Tarjan's algorithm) this package
// already uses for general graphs in FullTarjanOLCA/TarjanOLCA.
func (d *Dominators[T]) NearestCommonDominators(pairs [][2]T) ([]T, error) {
	indexPairs := make([][2]int, len(pairs))
	queries := make(map[interface{}]set, len(pairs)*2)

	for k, pair := range pairs {
		aIdx, found := indexOf(d.index, pair[0])
		if !found {
			return nil, fmt.Errorf("%w: %v", ErrUnknownVertex, pair[0])
		}
		bIdx, found := indexOf(d.index, pair[1])
		if !found {
			return nil, fmt.Errorf("%w: %v", ErrUnknownVertex, pair[1])
		}
		indexPairs[k] = [2]int{aIdx, bIdx}

		if queries[aIdx] == nil {
			queries[aIdx] = make(set)
		}
		if queries[bIdx] == nil {
			queries[bIdx] = make(set)
		}
		queries[aIdx][bIdx] = struct{}{}
		queries[bIdx][aIdx] = struct{}{}
	}

	treeGraph := OfHashable(func(i int) []int { return d.tree[i] })
	lca := treeGraph.TarjanOLCA(0, queries)

	results := make([]T, len(pairs))
	for k, idx := range indexPairs {
		ancestor, found := lca.Result[idx[0]][idx[1]]
		if !found {
			// Fall back to the direct walk; this only happens for pairs
			// of vertices that never co-occur as siblings in the offline
			// traversal's query set, which cannot happen given how
			// queries was built above, but stay correct if that ever
			// changes.
			v, _ := d.NearestCommonDominator(d.vertex[idx[0]], d.vertex[idx[1]])
			results[k] = v
			continue
		}
		results[k] = d.vertex[ancestor.(int)]
	}
	return results, nil
}
