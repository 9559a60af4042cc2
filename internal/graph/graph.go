// Package graph builds and validates the monorepo dependency graph and
// exposes deterministic topological orderings over it.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/monoforge/monoforge/internal/domain"
)

// DuplicatePackageError reports two packages sharing one name.
type DuplicatePackageError struct {
	Name string
}

func (e *DuplicatePackageError) Error() string {
	return fmt.Sprintf("duplicate package name %q", e.Name)
}

// UnknownDependencyError reports an internal dependency that does not
// resolve to any package in the repo.
type UnknownDependencyError struct {
	From string
	To   string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("package %q depends on unknown package %q", e.From, e.To)
}

// CycleError reports a dependency cycle with its full path for diagnostics.
type CycleError struct {
	Path []string // closed walk, first element repeated last
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// Graph is a validated, acyclic dependency graph over packages. Nodes are
// stable integer indices into an arena; edge i->j means package i depends
// on package j. Graphs are read-only after Build.
type Graph struct {
	packages   []*domain.Package
	index      map[string]int
	deps       [][]int // deps[i]: indices package i depends on
	dependents [][]int // dependents[i]: indices depending on package i
	order      []int   // topological order, dependencies first
}

// Build indexes the packages, validates references and acyclicity, and
// computes the canonical topological order. On any structural error no
// partial graph is returned.
func Build(packages []*domain.Package) (*Graph, error) {
	g := &Graph{
		packages:   packages,
		index:      make(map[string]int, len(packages)),
		deps:       make([][]int, len(packages)),
		dependents: make([][]int, len(packages)),
	}

	for i, p := range packages {
		if _, dup := g.index[p.Name]; dup {
			return nil, &DuplicatePackageError{Name: p.Name}
		}
		g.index[p.Name] = i
	}

	for i, p := range packages {
		for _, dep := range p.InternalDeps {
			j, ok := g.index[dep]
			if !ok {
				return nil, &UnknownDependencyError{From: p.Name, To: dep}
			}
			g.deps[i] = append(g.deps[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, cycle
	}

	g.order = g.topoSort()
	return g, nil
}

// Len returns the number of packages in the graph.
func (g *Graph) Len() int { return len(g.packages) }

// Package returns the package with the given name.
func (g *Graph) Package(name string) (*domain.Package, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.packages[i], true
}

// Names returns all package names in sorted order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.packages))
	for name := range g.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deps returns the direct internal dependencies of name.
func (g *Graph) Deps(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.deps[i])
}

// Dependents returns the packages directly depending on name.
func (g *Graph) Dependents(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.dependents[i])
}

// TransitiveDeps returns the transitive closure of internal dependencies
// of the given names, excluding the names themselves unless reached.
func (g *Graph) TransitiveDeps(names []string) []string {
	seen := make(map[int]bool)
	var stack []int
	for _, name := range names {
		if i, ok := g.index[name]; ok {
			stack = append(stack, i)
		}
	}
	var out []int
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range g.deps[i] {
			if !seen[j] {
				seen[j] = true
				out = append(out, j)
				stack = append(stack, j)
			}
		}
	}
	return g.namesOf(out)
}

// TransitiveDependents returns every package that depends, directly or
// transitively, on name.
func (g *Graph) TransitiveDependents(name string) []string {
	start, ok := g.index[name]
	if !ok {
		return nil
	}
	seen := make(map[int]bool)
	stack := []int{start}
	var out []int
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range g.dependents[i] {
			if !seen[j] {
				seen[j] = true
				out = append(out, j)
				stack = append(stack, j)
			}
		}
	}
	return g.namesOf(out)
}

// Order returns all package names in topological order, dependencies first.
// The order is deterministic: ties break lexicographically by name.
func (g *Graph) Order() []string {
	names := make([]string, len(g.order))
	for k, i := range g.order {
		names[k] = g.packages[i].Name
	}
	return names
}

// Batches returns the execution plan for the selected packages: ordered
// batches where batch i only contains packages whose selected internal
// dependencies appear in batches 0..i-1. Unselected dependencies count as
// already satisfied. A nil selection means all packages.
func (g *Graph) Batches(selected map[string]bool) [][]string {
	inSel := func(i int) bool {
		return selected == nil || selected[g.packages[i].Name]
	}

	// depth[i]: longest selected dependency chain below i
	depth := make(map[int]int)
	var batches [][]string
	for _, i := range g.order {
		if !inSel(i) {
			continue
		}
		d := 0
		for _, j := range g.deps[i] {
			if inSel(j) && depth[j]+1 > d {
				d = depth[j] + 1
			}
		}
		depth[i] = d
		for len(batches) <= d {
			batches = append(batches, nil)
		}
		batches[d] = append(batches[d], g.packages[i].Name)
	}
	for _, b := range batches {
		sort.Strings(b)
	}
	return batches
}

// findCycle runs a depth-first traversal with an in-progress marker set and
// returns a CycleError naming the full cycle path, or nil.
func (g *Graph) findCycle() *CycleError {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make([]int, len(g.packages))
	var stack []int

	var visit func(i int) *CycleError
	visit = func(i int) *CycleError {
		state[i] = inStack
		stack = append(stack, i)
		for _, j := range g.deps[i] {
			switch state[j] {
			case inStack:
				// unwind the stack to the first occurrence of j
				var path []string
				for k := len(stack) - 1; k >= 0; k-- {
					path = append([]string{g.packages[stack[k]].Name}, path...)
					if stack[k] == j {
						break
					}
				}
				path = append(path, g.packages[j].Name)
				return &CycleError{Path: path}
			case unvisited:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		return nil
	}

	for i := range g.packages {
		if state[i] == unvisited {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// topoSort runs Kahn's algorithm over in-degree counts of the dependency
// edges: a package becomes schedulable once all its internal deps are
// scheduled. Equally-ready packages are taken in lexicographic name order
// so repeated runs over identical input produce identical plans.
func (g *Graph) topoSort() []int {
	inDegree := make([]int, len(g.packages))
	for i := range g.packages {
		inDegree[i] = len(g.deps[i])
	}

	var ready []int
	for i, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.packages))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool {
			return g.packages[ready[a]].Name < g.packages[ready[b]].Name
		})
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)

		for _, j := range g.dependents[i] {
			inDegree[j]--
			if inDegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}
	return order
}

func (g *Graph) namesOf(indices []int) []string {
	names := make([]string, len(indices))
	for k, i := range indices {
		names[k] = g.packages[i].Name
	}
	sort.Strings(names)
	return names
}
