package selection

import (
	"reflect"
	"sort"
	"testing"

	"github.com/monoforge/monoforge/internal/domain"
	"github.com/monoforge/monoforge/internal/graph"
)

func buildGraph(t *testing.T, packages ...*domain.Package) *graph.Graph {
	t.Helper()
	g, err := graph.Build(packages)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}
	return g
}

func pkg(name string, deps ...string) *domain.Package {
	return &domain.Package{Name: name, Version: "1.0.0", Path: "libs/" + name, InternalDeps: deps}
}

func names(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func TestResolve_EmptyIncludeSelectsAll(t *testing.T) {
	g := buildGraph(t, pkg("a", "b"), pkg("b"), pkg("c"))

	selected, err := Resolve(g, nil, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := names(selected); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("selected = %v, want [a b c]", got)
	}
}

func TestResolve_ClosureOverDeps(t *testing.T) {
	g := buildGraph(t, pkg("a", "b"), pkg("b", "c"), pkg("c"), pkg("d"))

	selected, err := Resolve(g, []string{"a"}, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := names(selected); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("selected = %v, want [a b c]", got)
	}
}

func TestResolve_ClosedUnderInternalDeps(t *testing.T) {
	g := buildGraph(t, pkg("a", "b"), pkg("b", "c"), pkg("c"), pkg("d", "c"))

	selected, err := Resolve(g, []string{"a", "d"}, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for name := range selected {
		for _, dep := range g.Deps(name) {
			if !selected[dep] {
				t.Errorf("selected package %s has unselected dependency %s", name, dep)
			}
		}
	}
}

func TestResolve_UnsatisfiableExclude(t *testing.T) {
	g := buildGraph(t, pkg("a", "b"), pkg("b"))

	_, err := Resolve(g, []string{"a"}, []string{"b"})
	unsat, ok := err.(*UnsatisfiableSelectionError)
	if !ok {
		t.Fatalf("Resolve() error = %v, want *UnsatisfiableSelectionError", err)
	}
	if unsat.Package != "a" || unsat.MissingDep != "b" {
		t.Errorf("Package/MissingDep = %s/%s, want a/b", unsat.Package, unsat.MissingDep)
	}
}

func TestResolve_TransitiveUnsatisfiableExclude(t *testing.T) {
	g := buildGraph(t, pkg("a", "b"), pkg("b", "c"), pkg("c"))

	if _, err := Resolve(g, []string{"a"}, []string{"c"}); err == nil {
		t.Fatal("Resolve() error = nil, want unsatisfiable selection error")
	}
}

func TestResolve_IncludeAndExcludeSameName(t *testing.T) {
	g := buildGraph(t, pkg("a"))

	if _, err := Resolve(g, []string{"a"}, []string{"a"}); err == nil {
		t.Fatal("Resolve() error = nil, want unsatisfiable selection error")
	}
}

func TestResolve_ExcludeRemovesDependents(t *testing.T) {
	g := buildGraph(t, pkg("a", "b"), pkg("b"), pkg("c"))

	selected, err := Resolve(g, nil, []string{"b"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	// a needs b, so excluding b drops a too; c is untouched
	if got := names(selected); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("selected = %v, want [c]", got)
	}
}

func TestResolve_UnknownName(t *testing.T) {
	g := buildGraph(t, pkg("a"))

	if _, err := Resolve(g, []string{"ghost"}, nil); err == nil {
		t.Fatal("Resolve() error = nil, want unknown package error")
	}
	if _, err := Resolve(g, nil, []string{"ghost"}); err == nil {
		t.Fatal("Resolve() error = nil, want unknown package error")
	}
}
