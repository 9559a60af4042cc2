package manifest

import (
	"testing"

	"github.com/monoforge/monoforge/internal/domain"
)

func TestLoad_Valid(t *testing.T) {
	data := []byte(`
name: billing
version: 1.2.3
dependencies:
  internal:
    - core
    - auth
  external:
    requests: ">=2.0"
    structlog: ""
`)
	pkg, err := Load(data, "libs/billing")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if pkg.Name != "billing" {
		t.Errorf("Name = %q, want billing", pkg.Name)
	}
	if pkg.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", pkg.Version)
	}
	if pkg.Path != "libs/billing" {
		t.Errorf("Path = %q, want libs/billing", pkg.Path)
	}
	// internal deps come back sorted
	if len(pkg.InternalDeps) != 2 || pkg.InternalDeps[0] != "auth" || pkg.InternalDeps[1] != "core" {
		t.Errorf("InternalDeps = %v, want [auth core]", pkg.InternalDeps)
	}
	if pkg.ExternalDeps["requests"] != ">=2.0" {
		t.Errorf("ExternalDeps[requests] = %q, want >=2.0", pkg.ExternalDeps["requests"])
	}
	// empty constraint normalizes to the wildcard
	if pkg.ExternalDeps["structlog"] != "*" {
		t.Errorf("ExternalDeps[structlog] = %q, want *", pkg.ExternalDeps["structlog"])
	}
}

func TestLoad_MissingName(t *testing.T) {
	_, err := Load([]byte("version: 1.0.0\n"), "libs/x")
	if _, ok := err.(*domain.ManifestError); !ok {
		t.Fatalf("Load() error = %v, want *domain.ManifestError", err)
	}
}

func TestLoad_MissingVersion(t *testing.T) {
	_, err := Load([]byte("name: core\n"), "libs/core")
	if err == nil {
		t.Fatal("Load() error = nil, want missing version error")
	}
}

func TestLoad_BadVersion(t *testing.T) {
	_, err := Load([]byte("name: core\nversion: not-a-version\n"), "libs/core")
	if err == nil {
		t.Fatal("Load() error = nil, want invalid version error")
	}
}

func TestLoad_PrereleaseVersion(t *testing.T) {
	pkg, err := Load([]byte("name: core\nversion: 2.0.0-rc.1\n"), "libs/core")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if pkg.Version != "2.0.0-rc.1" {
		t.Errorf("Version = %q, want 2.0.0-rc.1", pkg.Version)
	}
}

func TestLoad_DuplicateInternalDep(t *testing.T) {
	data := []byte(`
name: billing
version: 1.0.0
dependencies:
  internal: [core, core]
`)
	_, err := Load(data, "libs/billing")
	if err == nil {
		t.Fatal("Load() error = nil, want duplicate dependency error")
	}
}

func TestLoad_InternalExternalClash(t *testing.T) {
	data := []byte(`
name: billing
version: 1.0.0
dependencies:
  internal: [core]
  external:
    core: "1.0"
`)
	_, err := Load(data, "libs/billing")
	if err == nil {
		t.Fatal("Load() error = nil, want clash error")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load([]byte("name: [unclosed"), "libs/x")
	if _, ok := err.(*domain.ManifestError); !ok {
		t.Fatalf("Load() error = %v, want *domain.ManifestError", err)
	}
}

func TestLoad_InvalidDependencyName(t *testing.T) {
	data := []byte(`
name: billing
version: 1.0.0
dependencies:
  internal: ["Bad Name"]
`)
	_, err := Load(data, "libs/billing")
	if err == nil {
		t.Fatal("Load() error = nil, want invalid name error")
	}
}
