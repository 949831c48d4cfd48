package graph

import (
	"math/rand"
	"testing"

	"github.com/cs-au-dk/domgraph/internal/bruteforce"
	"github.com/cs-au-dk/domgraph/internal/graphgen"
)

// scenario is one of the concrete graphs from the dominator-analysis test
// suite: vertices named by letters, entry "A", edges given as adjacency
// lists keyed by vertex name.
type scenario struct {
	name  string
	edges map[string][]string
	idom  map[string]string // expected immediate dominator, entry omitted
}

var scenarios = []scenario{
	{
		name: "linear chain",
		edges: map[string][]string{
			"A": {"B"}, "B": {"C"}, "C": {"D"},
		},
		idom: map[string]string{"B": "A", "C": "B", "D": "C"},
	},
	{
		name: "diamond",
		edges: map[string][]string{
			"A": {"B", "C"}, "B": {"D"}, "C": {"D"},
		},
		idom: map[string]string{"B": "A", "C": "A", "D": "A"},
	},
	{
		name: "loop with entry",
		edges: map[string][]string{
			"A": {"B"}, "B": {"C"}, "C": {"B", "D"},
		},
		idom: map[string]string{"B": "A", "C": "B", "D": "C"},
	},
	{
		name: "irreducible",
		edges: map[string][]string{
			"A": {"B", "C"}, "B": {"C", "D"}, "C": {"B", "D"},
		},
		idom: map[string]string{"B": "A", "C": "A", "D": "A"},
	},
	{
		name: "cross-edge",
		edges: map[string][]string{
			"A": {"B", "C"}, "B": {"D", "E"}, "C": {"D"}, "D": {"E"},
		},
		idom: map[string]string{"B": "A", "C": "A", "D": "A", "E": "A"},
	},
	{
		name: "self-loop on non-entry",
		edges: map[string][]string{
			"A": {"B"}, "B": {"B", "C"},
		},
		idom: map[string]string{"B": "A", "C": "B"},
	},
}

// predecessorsOf returns the vertices with an edge to v, in a stable order,
// used to feed IterativeDominatorTree's cross-validation oracle (which
// computes idom(v) as the nearest common dominator of v's predecessors).
func predecessorsOf(edges map[string][]string, v string) []string {
	var preds []string
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		for _, w := range edges[name] {
			if w == v {
				preds = append(preds, name)
			}
		}
	}
	return preds
}

func (s scenario) graph() Graph[string] {
	return OfHashable(func(v string) []string { return s.edges[v] })
}

func (s scenario) vertices() []string {
	seen := map[string]bool{"A": true}
	order := []string{"A"}
	for v, succs := range s.edges {
		if !seen[v] {
			seen[v] = true
			order = append(order, v)
		}
		for _, w := range succs {
			if !seen[w] {
				seen[w] = true
				order = append(order, w)
			}
		}
	}
	return order
}

func TestScenarios(t *testing.T) {
	for _, s := range scenarios {
		s := s
		t.Run(s.name, func(t *testing.T) {
			G := s.graph()
			verts := s.vertices()
			d := G.Dominators("A", len(verts))
			oracle := G.IterativeDominatorTree("A")

			for v, want := range s.idom {
				idx, found := indexOf(d.index, v)
				if !found {
					t.Fatalf("vertex %q not in analysis", v)
				}
				got := d.vertex[d.idom[idx]]
				if got != want {
					t.Errorf("idom(%s) = %s, want %s", v, got, want)
				}

				preds := predecessorsOf(s.edges, v)
				if oracleIdom := oracle(preds...); oracleIdom != want {
					t.Errorf("IterativeDominatorTree disagrees: idom(%s) via ncd(preds)=%s, want %s", v, oracleIdom, want)
				}
			}

			// dominates: one true (idom), one false (a child doesn't
			// dominate its own parent, unless they coincide), one reflexive.
			for v := range s.idom {
				idx, _ := indexOf(d.index, v)
				parent := d.vertex[d.idom[idx]]

				if ok, err := d.Dominates(parent, v); err != nil || !ok {
					t.Errorf("Dominates(%s, %s) = %v, %v, want true, nil", parent, v, ok, err)
				}
				if ok, err := d.Dominates(v, v); err != nil || !ok {
					t.Errorf("Dominates(%s, %s) = %v, %v, want true, nil (reflexive)", v, v, ok, err)
				}
				if v != parent {
					if ok, err := d.Dominates(v, parent); err != nil || ok {
						t.Errorf("Dominates(%s, %s) = %v, %v, want false, nil", v, parent, ok, err)
					}
				}
			}

			checkInvariants(t, d, verts)
		})
	}
}

// TestScenarioLiteralDominates checks the specific dominates(...) facts
// called out by name for each scenario, rather than only the generic
// parent/reflexive/non-parent pattern TestScenarios already covers.
func TestScenarioLiteralDominates(t *testing.T) {
	check := func(t *testing.T, d *Dominators[string], a, b string, want bool) {
		t.Helper()
		got, err := d.Dominates(a, b)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Dominates(%s, %s) = %v, want %v", a, b, got, want)
		}
	}

	t.Run("linear chain", func(t *testing.T) {
		s := scenarios[0]
		d := s.graph().Dominators("A", len(s.vertices()))
		check(t, d, "A", "D", true)
		check(t, d, "C", "B", false)
	})
	t.Run("loop with entry", func(t *testing.T) {
		s := scenarios[2]
		d := s.graph().Dominators("A", len(s.vertices()))
		check(t, d, "B", "D", true)
	})
	t.Run("irreducible", func(t *testing.T) {
		s := scenarios[3]
		d := s.graph().Dominators("A", len(s.vertices()))
		for _, v := range []string{"B", "C", "D"} {
			if v == "D" {
				continue
			}
			check(t, d, v, "D", false)
		}
	})
	t.Run("cross-edge", func(t *testing.T) {
		s := scenarios[4]
		d := s.graph().Dominators("A", len(s.vertices()))
		check(t, d, "B", "E", false)
	})
}

func TestScenarioDiamondDominatorsOf(t *testing.T) {
	s := scenarios[1] // diamond
	G := s.graph()
	d := G.Dominators("A", len(s.vertices()))

	doms, err := d.DominatorsOf("D")
	if err != nil {
		t.Fatal(err)
	}
	if len(doms) != 1 || doms[0] != "A" {
		t.Errorf("DominatorsOf(D) = %v, want [A]", doms)
	}
}

func TestScenarioLoopDominatorsOf(t *testing.T) {
	s := scenarios[2] // loop with entry
	G := s.graph()
	d := G.Dominators("A", len(s.vertices()))

	doms, err := d.DominatorsOf("D")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A", "C", "B"}
	if len(doms) != len(want) {
		t.Fatalf("DominatorsOf(D) = %v, want %v", doms, want)
	}
	for i, v := range want {
		if doms[i] != v {
			t.Errorf("DominatorsOf(D)[%d] = %s, want %s", i, doms[i], v)
		}
	}
}

// checkInvariants verifies SPEC_FULL §8 invariants 1-7 for a constructed
// analysis over the given reachable vertices.
func checkInvariants(t *testing.T, d *Dominators[string], verts []string) {
	t.Helper()
	entry := d.vertex[0]

	for _, v := range verts {
		// 2: entry dominates everything reachable.
		if ok, err := d.Dominates(entry, v); err != nil || !ok {
			t.Errorf("invariant 2 violated: Dominates(entry=%s, %s) = %v, %v", entry, v, ok, err)
		}
		// 3: reflexive.
		if ok, err := d.Dominates(v, v); err != nil || !ok {
			t.Errorf("invariant 3 violated: Dominates(%s, %s) = %v, %v", v, v, ok, err)
		}

		if v == entry {
			continue
		}
		// 1: idom(v) strictly dominates v.
		idx, _ := indexOf(d.index, v)
		idom := d.vertex[d.idom[idx]]
		if idom == v {
			t.Errorf("invariant 1 violated: idom(%s) == %s", v, v)
		}
		if ok, err := d.Dominates(idom, v); err != nil || !ok {
			t.Errorf("invariant 1 violated: Dominates(idom(%s)=%s, %s) = %v, %v", v, idom, v, ok, err)
		}

		// 7: round trip of DominatorsOf.
		doms, err := d.DominatorsOf(v)
		if err != nil {
			t.Fatalf("DominatorsOf(%s): %v", v, err)
		}
		if len(doms) == 0 || doms[0] != entry {
			t.Errorf("invariant 7 violated: DominatorsOf(%s) = %v does not start with entry", v, doms)
		}
		for _, u := range doms {
			if ok, err := d.Dominates(u, v); err != nil || !ok {
				t.Errorf("invariant 7 violated: dominator %s of %s returned by DominatorsOf does not dominate it (%v, %v)", u, v, ok, err)
			}
		}
	}

	// 4/5: transitivity and antisymmetry, checked over all ordered triples
	// and pairs of reachable vertices (verts is small in the scenario
	// suite; the property test below does not repeat this check, and
	// covers the whole relation only through the brute-force oracle for
	// small graphs).
	for _, a := range verts {
		for _, b := range verts {
			ab, _ := d.Dominates(a, b)
			ba, _ := d.Dominates(b, a)
			if ab && ba && a != b {
				t.Errorf("invariant 5 violated: Dominates(%s,%s) and Dominates(%s,%s) but %s != %s", a, b, b, a, a, b)
			}
			for _, c := range verts {
				bc, _ := d.Dominates(b, c)
				ac, _ := d.Dominates(a, c)
				if ab && bc && !ac {
					t.Errorf("invariant 4 violated: Dominates(%s,%s) and Dominates(%s,%s) but not Dominates(%s,%s)", a, b, b, c, a, c)
				}
			}
		}
	}

	// 6: the dominator tree is a tree - every non-entry reachable vertex
	// has exactly one parent (guaranteed by idom's shape, a single int per
	// vertex), and only the entry is its own idom.
	for i, v := range d.vertex {
		if v == entry {
			if d.idom[i] != 0 {
				t.Errorf("invariant 6 violated: idom(entry) index = %d, want 0", d.idom[i])
			}
			continue
		}
		if d.idom[i] == i {
			t.Errorf("invariant 6 violated: non-entry vertex %s is its own idom", v)
		}
	}
}

// TestConstructionErrors exercises the EmptyGraph and InvalidGraph panics.
func TestConstructionErrors(t *testing.T) {
	t.Run("zero numVertices panics with EmptyGraph", func(t *testing.T) {
		defer expectPanic(t, ErrEmptyGraph)
		DominatorsOfComparable(0, 0, func(int) []int { return nil })
	})

	t.Run("entry with no successors and numVertices=1 succeeds", func(t *testing.T) {
		d := DominatorsOfComparable(0, 1, func(int) []int { return nil })
		if got := d.Vertices(); len(got) != 1 || got[0] != 0 {
			t.Errorf("Vertices() = %v, want [0]", got)
		}
	})

	t.Run("underestimated numVertices panics with InvalidGraph", func(t *testing.T) {
		defer expectPanic(t, ErrInvalidGraph)
		DominatorsOfComparable(0, 1, func(v int) []int {
			if v == 0 {
				return []int{1}
			}
			return nil
		})
	})
}

func expectPanic(t *testing.T, want error) {
	t.Helper()
	r := recover()
	if r == nil {
		t.Fatal("expected a panic, got none")
	}
	err, ok := r.(error)
	if !ok {
		t.Fatalf("panic value %v is not an error", r)
	}
	// wrapping is checked with errors.Is semantics via fmt.Errorf("%w", ...)
	if !errorIs(err, want) {
		t.Fatalf("panic = %v, want wrapping %v", err, want)
	}
}

func errorIs(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// TestUnknownVertex exercises the one query-time error this package
// returns rather than panics.
func TestUnknownVertex(t *testing.T) {
	d := DominatorsOfComparable(0, 2, func(v int) []int {
		if v == 0 {
			return []int{1}
		}
		return nil
	})

	if _, err := d.Dominates(0, 99); !errorIs(err, ErrUnknownVertex) {
		t.Errorf("Dominates with unknown vertex: err = %v, want wrapping ErrUnknownVertex", err)
	}
	if _, err := d.DominatorsOf(99); !errorIs(err, ErrUnknownVertex) {
		t.Errorf("DominatorsOf with unknown vertex: err = %v, want wrapping ErrUnknownVertex", err)
	}
	if _, err := d.NearestCommonDominator(0, 99); !errorIs(err, ErrUnknownVertex) {
		t.Errorf("NearestCommonDominator with unknown vertex: err = %v, want wrapping ErrUnknownVertex", err)
	}
}

func TestNearestCommonDominator(t *testing.T) {
	s := scenarios[4] // cross-edge: A->B,C; B->D,E; C->D; D->E
	G := s.graph()
	d := G.Dominators("A", len(s.vertices()))

	ncd, err := d.NearestCommonDominator("D", "E")
	if err != nil {
		t.Fatal(err)
	}
	// D and E's only common dominator (besides the obviously-deeper-or-equal
	// checks below) must itself dominate both, and invariant 8 requires no
	// strict descendant of it in the tree to also dominate both.
	if ok, _ := d.Dominates(ncd, "D"); !ok {
		t.Errorf("ncd %s does not dominate D", ncd)
	}
	if ok, _ := d.Dominates(ncd, "E"); !ok {
		t.Errorf("ncd %s does not dominate E", ncd)
	}
	for _, child := range d.tree[mustIndex(t, d, ncd)] {
		cv := d.vertex[child]
		dominatesD, _ := d.Dominates(cv, "D")
		dominatesE, _ := d.Dominates(cv, "E")
		if dominatesD && dominatesE {
			t.Errorf("invariant 8 violated: %s is a strict descendant of ncd %s and dominates both D and E", cv, ncd)
		}
	}

	batch, err := d.NearestCommonDominators([][2]string{{"D", "E"}, {"B", "C"}})
	if err != nil {
		t.Fatal(err)
	}
	if batch[0] != ncd {
		t.Errorf("NearestCommonDominators disagrees with NearestCommonDominator: %s != %s", batch[0], ncd)
	}
	if batch[1] != "A" {
		t.Errorf("NearestCommonDominators(B,C) = %s, want A", batch[1])
	}
}

func mustIndex(t *testing.T, d *Dominators[string], v string) int {
	t.Helper()
	idx, found := indexOf(d.index, v)
	if !found {
		t.Fatalf("vertex %q not found", v)
	}
	return idx
}

// TestPropertyRandomGraphs generates random rooted DAGs and graphs with
// back-edges across a range of sizes, cross-validating the engine against
// invariants 1-3, 6 and 7 and, for small graphs, the brute-force
// definitional oracle in internal/bruteforce.
func TestPropertyRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	sizes := []int{1, 2, 3, 5, 8, 12, 20, 50, 100, 200}
	for _, n := range sizes {
		for _, backEdges := range []bool{false, true} {
			n, backEdges := n, backEdges
			name := "dag"
			if backEdges {
				name = "with-back-edges"
			}
			t.Run(name, func(t *testing.T) {
				for trial := 0; trial < 5; trial++ {
					g := graphgen.Random(rng, n, backEdges)
					G := OfHashable(g.SuccessorsOf)
					d := G.Dominators(0, g.N)

					verts := make([]int, len(d.vertex))
					copy(verts, d.vertex)
					checkIntInvariants(t, d, verts)

					if n <= 12 {
						brute := bruteforce.Dominators(g.N, g.SuccessorsOf)
						for _, a := range verts {
							for _, b := range verts {
								got, _ := d.Dominates(a, b)
								if want := brute[a][b]; got != want {
									t.Fatalf("n=%d back-edges=%v: Dominates(%d,%d) = %v, brute force says %v (graph %+v)", n, backEdges, a, b, got, want, g.Succs)
								}
							}
						}
					}
				}
			})
		}
	}
}

func checkIntInvariants(t *testing.T, d *Dominators[int], verts []int) {
	t.Helper()
	entry := d.vertex[0]

	for _, v := range verts {
		if ok, err := d.Dominates(entry, v); err != nil || !ok {
			t.Fatalf("invariant 2 violated: Dominates(entry=%d, %d) = %v, %v", entry, v, ok, err)
		}
		if ok, err := d.Dominates(v, v); err != nil || !ok {
			t.Fatalf("invariant 3 violated: Dominates(%d, %d) = %v, %v", v, v, ok, err)
		}
		if v == entry {
			continue
		}
		idx, _ := indexOf(d.index, v)
		idom := d.vertex[d.idom[idx]]
		if idom == v {
			t.Fatalf("invariant 1 violated: idom(%d) == %d", v, v)
		}
		if ok, err := d.Dominates(idom, v); err != nil || !ok {
			t.Fatalf("invariant 1 violated: Dominates(idom(%d)=%d, %d) = %v, %v", v, idom, v, ok, err)
		}

		doms, err := d.DominatorsOf(v)
		if err != nil {
			t.Fatalf("DominatorsOf(%d): %v", v, err)
		}
		if len(doms) == 0 || doms[0] != entry {
			t.Fatalf("invariant 7 violated: DominatorsOf(%d) = %v does not start with entry", v, doms)
		}
		for _, u := range doms {
			if ok, err := d.Dominates(u, v); err != nil || !ok {
				t.Fatalf("invariant 7 violated: dominator %d of %d does not dominate it", u, v)
			}
		}
	}

	for i, v := range d.vertex {
		if v == entry {
			if d.idom[i] != 0 {
				t.Fatalf("invariant 6 violated: idom(entry) index = %d, want 0", d.idom[i])
			}
			continue
		}
		if d.idom[i] == i {
			t.Fatalf("invariant 6 violated: non-entry vertex %d is its own idom", v)
		}
	}
}
