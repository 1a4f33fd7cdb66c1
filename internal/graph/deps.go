package graph

import "sort"

// Deps is the file-level import graph of one project. dependencies[f] holds
// the files f imports; dependents[t] holds the files importing t. The two maps
// are kept as exact transposes of each other.
type Deps struct {
	dependencies map[string]map[string]struct{}
	dependents   map[string]map[string]struct{}
}

func NewDeps() *Deps {
	return &Deps{
		dependencies: make(map[string]map[string]struct{}),
		dependents:   make(map[string]map[string]struct{}),
	}
}

// AddFile registers f with empty edge sets so lookups never miss.
func (d *Deps) AddFile(f string) {
	if _, ok := d.dependencies[f]; !ok {
		d.dependencies[f] = make(map[string]struct{})
	}
	if _, ok := d.dependents[f]; !ok {
		d.dependents[f] = make(map[string]struct{})
	}
}

// AddEdge records from -> to in both directions. Self-edges are kept.
func (d *Deps) AddEdge(from, to string) {
	d.AddFile(from)
	d.AddFile(to)
	d.dependencies[from][to] = struct{}{}
	d.dependents[to][from] = struct{}{}
}

// Dependencies returns the sorted files that f imports.
func (d *Deps) Dependencies(f string) []string {
	return sortedKeys(d.dependencies[f])
}

// Dependents returns the sorted files that import t.
func (d *Deps) Dependents(t string) []string {
	return sortedKeys(d.dependents[t])
}

// HasEdge reports whether from imports to.
func (d *Deps) HasEdge(from, to string) bool {
	_, ok := d.dependencies[from][to]
	return ok
}

// Files returns every registered file in ascending order.
func (d *Deps) Files() []string {
	out := make([]string, 0, len(d.dependencies))
	for f := range d.dependencies {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// EdgeCount is the number of directed edges.
func (d *Deps) EdgeCount() int {
	n := 0
	for _, ts := range d.dependencies {
		n += len(ts)
	}
	return n
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
