// domtree is a demonstration CLI for the dominator-analysis engine in
// utils/graph. It performs no analysis of its own: it reads a graph
// (either a YAML adjacency list, or the basic-block CFG of a named
// function in real Go source, via ssacfg), prints the resulting
// dominator tree, and optionally answers one-shot dominance queries or
// renders the tree as an image.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/cs-au-dk/domgraph/pkgutil"
	"github.com/cs-au-dk/domgraph/ssacfg"
	"github.com/cs-au-dk/domgraph/utils"
	"github.com/cs-au-dk/domgraph/utils/dot"
	"github.com/cs-au-dk/domgraph/utils/graph"
	"github.com/cs-au-dk/domgraph/utils/indenter"
)

var opts = utils.Opts()

var (
	yamlFile         string
	pkgPath          string
	dominatesFlag    string
	dominatorsOfFlag string
	ncdFlag          string
	visualize        bool
	outFile          string
)

func init() {
	flag.StringVar(&yamlFile, "yaml", "", `path to a YAML graph description ("-" for stdin)`)
	flag.StringVar(&pkgPath, "pkg", "", "Go package path to load; builds a CFG for the function named by -fun")
	flag.StringVar(&dominatesFlag, "dominates", "", `query: "A,B" - does A dominate B?`)
	flag.StringVar(&dominatorsOfFlag, "dominators-of", "", "query: list the vertices dominating the named vertex (things known to run before it, including the entry)")
	flag.StringVar(&ncdFlag, "ncd", "", `query: "A,B" - nearest common dominator of A and B`)
	flag.BoolVar(&visualize, "visualize", false, "render the dominator tree as a DOT graph, then as an image")
	flag.StringVar(&outFile, "out", "", "base filename for -visualize output (default: a temp file)")
}

func main() {
	utils.ParseArgs()

	switch {
	case yamlFile != "":
		runYAML()
	case pkgPath != "":
		runSSA()
	default:
		fmt.Fprintln(os.Stderr, "domtree: exactly one of -yaml or -pkg is required")
		flag.Usage()
		os.Exit(2)
	}
}

func runYAML() {
	gf, err := loadGraphFile(yamlFile)
	if err != nil {
		log.Fatalln(err)
	}
	successorsOf, n := gf.successorsOf()

	log.Println("Running dominator analysis...")
	d := graph.DominatorsOfComparable(gf.Entry, n, successorsOf)
	log.Println("Dominator analysis done")
	fmt.Println()

	report(d, identity)
}

func runSSA() {
	cfg, err := ssacfg.FromPackage(pkgutil.LoadConfig{
		GoPath:     opts.GoPath(),
		ModulePath: opts.ModulePath(),
	}, pkgPath, opts.Function())
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Loaded %d basic blocks for %s\n", cfg.NumBlocks(), opts.Function())

	log.Println("Running dominator analysis...")
	d := cfg.Dominators()
	log.Println("Dominator analysis done")
	fmt.Println()

	report(d, utils.Atoi)
}

// report prints the dominator tree, answers any one-shot queries, and
// optionally renders the tree as an image. parseVertex converts a
// query's textual vertex name (a YAML node name, or a stringified SSA
// basic-block index) into T.
func report[T comparable](d *graph.Dominators[T], parseVertex func(string) T) {
	fmt.Println(renderDominatorTree(d, !opts.NoColorize()))
	fmt.Println()

	if dominatesFlag != "" {
		a, b := splitPair(dominatesFlag, "-dominates")
		ok, err := d.Dominates(parseVertex(a), parseVertex(b))
		printQueryResult(err, fmt.Sprintf("dominates(%s, %s) = %v", a, b, ok))
	}

	if dominatorsOfFlag != "" {
		doms, err := d.DominatorsOf(parseVertex(dominatorsOfFlag))
		var out string
		if err == nil {
			strs := make([]string, len(doms))
			for i, v := range doms {
				strs[i] = fmt.Sprint(v)
			}
			out = fmt.Sprintf("dominatorsOf(%s) = [%s]", dominatorsOfFlag, strings.Join(strs, ", "))
		}
		printQueryResult(err, out)
	}

	if ncdFlag != "" {
		a, b := splitPair(ncdFlag, "-ncd")
		ncd, err := d.NearestCommonDominator(parseVertex(a), parseVertex(b))
		printQueryResult(err, fmt.Sprintf("ncd(%s, %s) = %v", a, b, ncd))
	}

	if visualize {
		renderImage(d)
	}
}

func printQueryResult(err error, msg string) {
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		return
	}
	fmt.Println(msg)
}

func splitPair(s, flagName string) (string, string) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		log.Fatalf("%s expects a comma-separated pair, got %q", flagName, s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func identity(s string) string { return s }

// renderDominatorTree renders the dominator tree rooted at d's entry as
// an indented, braced listing, using this codebase's existing indenter
// convention for nested structures.
func renderDominatorTree[T any](d *graph.Dominators[T], colorize bool) string {
	vertices := d.Vertices()
	tree := d.DominatorTree()

	var render func(i int) string
	render = func(i int) string {
		label := fmt.Sprint(vertices[i])
		if colorize {
			label = color.GreenString(label)
		}

		children := tree[i]
		if len(children) == 0 {
			return label
		}

		childStrs := make([]string, len(children))
		for k, c := range children {
			childStrs[k] = render(c)
		}
		return indenter.Indenter().Start(label + " {").NestStringsSep(",", childStrs...).End("}")
	}

	return render(0)
}

// renderImage renders d's dominator tree as a DOT graph and shells out to
// Graphviz to turn it into an image, reusing utils/graph's existing
// ToDotGraph machinery by presenting the dominator tree itself as a Graph.
func renderImage[T comparable](d *graph.Dominators[T]) {
	vertices := d.Vertices()
	tree := d.DominatorTree()
	indices := d.VertexIndices()

	treeGraph := graph.OfHashable(func(v T) []T {
		i, _ := indices.Get(v)
		children := tree[i.(int)]
		res := make([]T, len(children))
		for k, c := range children {
			res[k] = vertices[c]
		}
		return res
	})

	var buf bytes.Buffer
	dg := treeGraph.ToDotGraph(vertices, nil)
	if err := dg.WriteDot(&buf); err != nil {
		log.Fatalln(err)
	}

	img, err := dot.DotToImage(outFile, opts.OutputFormat(), buf.Bytes())
	if err != nil {
		log.Fatalln(err)
	}
	fmt.Println("Rendered dominator tree to", img)
}
