// Package main's -yaml graph input: a human-writable adjacency list,
// driving the dominator engine without a compiler backend behind it.
package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// graphFile is the on-disk shape of a -yaml graph description: an entry
// vertex name and an adjacency list keyed by vertex name. A vertex that
// only ever appears as a successor needs no key of its own; the absence
// of a key means "no successors".
type graphFile struct {
	Entry string              `yaml:"entry"`
	Edges map[string][]string `yaml:"edges"`
}

func loadGraphFile(path string) (*graphFile, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var gf graphFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("parsing YAML graph description: %w", err)
	}
	if gf.Entry == "" {
		return nil, fmt.Errorf("YAML graph description has no 'entry' vertex")
	}
	return &gf, nil
}

// successorsOf returns gf's adjacency function together with an upper
// bound on its vertex count (every key, plus every vertex mentioned only
// as a successor), suitable as the numVertices argument to
// graph.DominatorsOfComparable.
func (gf *graphFile) successorsOf() (func(string) []string, int) {
	seen := map[string]bool{gf.Entry: true}
	for v, succs := range gf.Edges {
		seen[v] = true
		for _, s := range succs {
			seen[s] = true
		}
	}
	return func(v string) []string { return gf.Edges[v] }, len(seen)
}
