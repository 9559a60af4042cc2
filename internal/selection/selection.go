// Package selection computes the effective target set of an orchestrator
// run from include/exclude filters, closed under internal dependencies.
package selection

import (
	"fmt"

	"github.com/monoforge/monoforge/internal/graph"
)

// UnknownPackageError reports an include or exclude name that is not a
// package in the graph.
type UnknownPackageError struct {
	Name string
}

func (e *UnknownPackageError) Error() string {
	return fmt.Sprintf("no such package %q", e.Name)
}

// UnsatisfiableSelectionError reports an excluded package that is also a
// required dependency of an included one.
type UnsatisfiableSelectionError struct {
	Package    string
	MissingDep string
}

func (e *UnsatisfiableSelectionError) Error() string {
	return fmt.Sprintf("package %q requires excluded package %q", e.Package, e.MissingDep)
}

// Resolve computes the target set. An empty include means all packages.
// Otherwise the set is the includes expanded to the transitive closure of
// their internal dependencies; an excluded name inside that closure makes
// the selection unsatisfiable. The result's induced subgraph is closed
// under internal dependencies.
func Resolve(g *graph.Graph, include, exclude []string) (map[string]bool, error) {
	for _, name := range append(append([]string{}, include...), exclude...) {
		if _, ok := g.Package(name); !ok {
			return nil, &UnknownPackageError{Name: name}
		}
	}

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	selected := make(map[string]bool)
	if len(include) == 0 {
		for _, name := range g.Names() {
			if !excluded[name] {
				selected[name] = true
			}
		}
		// excluding a package excludes everything that needs it
		for _, name := range exclude {
			for _, dep := range g.TransitiveDependents(name) {
				delete(selected, dep)
			}
		}
		return selected, nil
	}

	for _, name := range include {
		if excluded[name] {
			return nil, &UnsatisfiableSelectionError{Package: name, MissingDep: name}
		}
		selected[name] = true
	}
	for _, name := range include {
		for _, dep := range g.TransitiveDeps([]string{name}) {
			if excluded[dep] {
				return nil, &UnsatisfiableSelectionError{Package: name, MissingDep: dep}
			}
			selected[dep] = true
		}
	}
	return selected, nil
}
