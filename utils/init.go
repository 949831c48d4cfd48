package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

// options mirrors this codebase's existing CLI-option convention: a single
// unexported struct populated by `flag`, exposed read-only through Opts().
type options struct {
	minlen       uint
	nodesep      float64
	function     string
	outputFormat string
	gopath       string
	modulePath   string
	noColorize   bool
	verbose      bool
}

// CanColorize strips a colorizing function down to a plain Sprintf when the
// user asked for -no-colorize, e.g. because stdout isn't a terminal.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var opts = &options{}

type optInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}
func (optInterface) Minlen() uint {
	return opts.minlen
}
func (optInterface) Nodesep() float64 {
	return opts.nodesep
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) GoPath() string {
	return opts.gopath
}
func (optInterface) ModulePath() string {
	return opts.modulePath
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}

func init() {
	flag.UintVar(&(opts.minlen), "minlen", 2, "Minimum edge length (for wider dot output).")
	flag.Float64Var(&(opts.nodesep), "nodesep", 0.35, "Minimum space between two adjacent nodes in the same rank (for taller dot output).")
	flag.StringVar(&(opts.function), "fun", "main", "target function to build a control-flow graph for, when reading a Go source file")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "rendered image format [svg | png | jpg | ...]")
	flag.StringVar(&(opts.gopath), "gopath", ".", "GOPATH to use when loading Go source with -pkg")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `path to a directory containing a Go module.
- If provided, package loading runs in "module-aware" mode (GO111MODULE=on).`)
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()
}
