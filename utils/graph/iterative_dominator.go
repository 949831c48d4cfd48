package graph

import "fmt"

// IterativeDominatorTree computes immediate dominators with the iterative
// Cooper-Harvey-Kennedy fixpoint algorithm (https://www.cs.rice.edu/~keith/EMBED/dom.pdf),
// independently of the Lengauer-Tarjan engine in dominator.go. It exists
// purely as a cross-validation oracle for tests: two algorithmically
// unrelated implementations agreeing on idom for the same graph is much
// stronger evidence of correctness than either one's own unit tests. It is
// not on the public construction path of Dominators and carries no
// performance guarantee; on large graphs it is markedly slower than
// Dominators, which is why the latter exists.
func (G Graph[T]) IterativeDominatorTree(root T) func(...T) T {
	postorderTime := G.mapFactory()
	pred := G.mapFactory()

	// Compute DFS post-order ordering.
	time := 0
	order := []T{}

	var dfs func(T)
	dfs = func(node T) {
		if _, seen := postorderTime.Get(node); seen {
			return
		}

		postorderTime.Set(node, -1)

		for _, e := range G.Edges(node) {
			var preds []T
			if predsItf, found := pred.Get(e); found {
				preds = predsItf.([]T)
			}

			pred.Set(e, append(preds, node))

			dfs(e)
		}

		postorderTime.Set(node, time)
		order = append(order, node)
		time++
	}

	dfs(root)

	// Initialize doms to "undefined".
	doms := make([]int, time)
	for i := 0; i < time; i++ {
		doms[i] = -1
	}
	doms[time-1] = time - 1

	intersect := func(a, b int) int {
		for a != b {
			if a < b {
				a = doms[a]
			} else {
				b = doms[b]
			}
		}
		return a
	}

	for {
		changed := false

		// Process nodes in reverse post-order (except for root).
		for i := time - 2; i >= 0; i-- {
			node := order[i]

			newIdom := -1
			predsItf, _ := pred.Get(node)

			for _, predecessor := range predsItf.([]T) {
				jItf, _ := postorderTime.Get(predecessor)
				j := jItf.(int)

				if doms[j] != -1 {
					if newIdom == -1 {
						newIdom = j
					} else {
						newIdom = intersect(j, newIdom)
					}
				}
			}

			if newIdom != doms[i] {
				doms[i] = newIdom
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	return func(nodes ...T) T {
		if len(nodes) == 0 {
			panic("empty list of nodes for dominator computation")
		}

		dom := -1
		for _, node := range nodes {
			iItf, found := postorderTime.Get(node)
			if !found {
				panic(fmt.Errorf("%v was not reachable when computing the dominator tree", node))
			}

			i := iItf.(int)
			if dom == -1 {
				dom = i
			} else {
				dom = intersect(i, dom)
			}
		}

		return order[dom]
	}
}
