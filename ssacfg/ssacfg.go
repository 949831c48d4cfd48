// Package ssacfg builds a control-flow graph for one Go function, the
// kind of graph utils/graph's dominator engine is meant to be exercised
// against by a real compiler backend, out of a function loaded and
// SSA-built from actual Go source via golang.org/x/tools. It performs no
// analysis of its own: it locates a named package-level function and
// exposes its basic blocks as a graph.Graph[int], generalizing
// utils/graph/factories.go's FromBasicBlocks (which already assumes a
// *ssa.Function has been built) with the loading and building step.
package ssacfg

import (
	"fmt"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/cs-au-dk/domgraph/pkgutil"
	"github.com/cs-au-dk/domgraph/utils/graph"
)

// CFG is the control-flow graph of one SSA function: vertices are basic
// block indices, the entry is always block 0 (ssa.Function.Blocks[0] by
// construction), and NumBlocks is an exact upper bound on how many of
// them are reachable, suitable as the numVertices argument to Dominators.
type CFG struct {
	Func  *ssa.Function
	Graph graph.Graph[int]
}

// Entry is the basic-block index of fn's entry block; always 0.
func (c CFG) Entry() int { return 0 }

// NumBlocks is the number of basic blocks in the function, used as the
// numVertices upper bound for Dominators.
func (c CFG) NumBlocks() int { return len(c.Func.Blocks) }

// Dominators runs the dominator analysis over this control-flow graph.
func (c CFG) Dominators() *graph.Dominators[int] {
	return c.Graph.Dominators(c.Entry(), c.NumBlocks())
}

// FromFunction builds a CFG directly from an already SSA-built function.
// Fails if fn has no body (an external/declared-only function has no
// basic blocks, and hence no entry vertex for the dominator engine).
func FromFunction(fn *ssa.Function) (CFG, error) {
	if len(fn.Blocks) == 0 {
		return CFG{}, fmt.Errorf("ssacfg: function %q has no body (declared but not defined)", fn.Name())
	}
	return CFG{Func: fn, Graph: graph.FromBasicBlocks(fn)}, nil
}

// FromSource loads a single Go source file given as a string (useful for
// tests that want a CFG without a package on disk), builds SSA for it, and
// returns the CFG of its package-level function funcName.
func FromSource(source, funcName string) (CFG, error) {
	pkgs, err := pkgutil.LoadPackagesFromSource(source)
	if err != nil {
		return CFG{}, err
	}
	return fromPackages(pkgs, funcName)
}

// FromPackage loads packageName according to cfg (module-aware if
// cfg.ModulePath is set, GOPATH mode otherwise), builds SSA, and returns
// the CFG of its package-level function funcName.
func FromPackage(cfg pkgutil.LoadConfig, packageName, funcName string) (CFG, error) {
	pkgs, err := pkgutil.LoadPackages(cfg, packageName)
	if err != nil {
		return CFG{}, err
	}
	return fromPackages(pkgs, funcName)
}

func fromPackages(pkgs []*packages.Package, funcName string) (CFG, error) {
	prog, _ := ssautil.AllPackages(pkgs, 0)
	prog.Build()

	for _, p := range prog.AllPackages() {
		if p == nil {
			continue
		}
		if fn, ok := p.Members[funcName].(*ssa.Function); ok {
			return FromFunction(fn)
		}
	}
	return CFG{}, fmt.Errorf("ssacfg: function %q not found in any loaded package", funcName)
}
