package action

import (
	"context"
	"strings"
	"testing"

	"github.com/monoforge/monoforge/internal/domain"
)

func sampleManifest() *domain.MergedManifest {
	return &domain.MergedManifest{
		Name:         "billing",
		Version:      "1.0.0",
		Dependencies: map[string]string{"requests": "2.31.0"},
		LocalPaths:   map[string]string{"core": "libs/core"},
	}
}

func TestExec_Success(t *testing.T) {
	x := &Exec{Command: []string{"true"}, Root: t.TempDir()}

	if err := x.Run(context.Background(), sampleManifest(), "services/billing"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestExec_FailureCapturesOutput(t *testing.T) {
	x := &Exec{Command: []string{"sh", "-c", "echo resolver exploded >&2; exit 3"}, Root: t.TempDir()}

	err := x.Run(context.Background(), sampleManifest(), "services/billing")
	failure, ok := err.(*Failure)
	if !ok {
		t.Fatalf("Run() error = %v, want *Failure", err)
	}
	if failure.Package != "billing" {
		t.Errorf("Package = %q, want billing", failure.Package)
	}
	if !strings.Contains(failure.Output, "resolver exploded") {
		t.Errorf("Output = %q, want captured stderr", failure.Output)
	}
}

func TestExec_NoCommand(t *testing.T) {
	x := &Exec{Root: t.TempDir()}

	if err := x.Run(context.Background(), sampleManifest(), "services/billing"); err == nil {
		t.Fatal("Run() error = nil, want configuration error")
	}
}

func TestExec_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := &Exec{Command: []string{"sleep", "10"}, Root: t.TempDir()}
	if err := x.Run(ctx, sampleManifest(), "services/billing"); err == nil {
		t.Fatal("Run() error = nil, want cancellation failure")
	}
}

func TestFailure_Unwrap(t *testing.T) {
	inner := context.Canceled
	f := &Failure{Package: "x", Err: inner}
	if f.Unwrap() != inner {
		t.Error("Unwrap() did not return the wrapped error")
	}
}

func TestExec_DeterministicDependencyNames(t *testing.T) {
	m := &domain.MergedManifest{
		Name:         "x",
		Version:      "1.0.0",
		Dependencies: map[string]string{"b": "1", "a": "2", "c": "3"},
	}
	names := m.DependencyNames()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("DependencyNames() = %v, want [a b c]", names)
	}
}
