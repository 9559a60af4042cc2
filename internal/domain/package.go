package domain

import (
	"fmt"
	"regexp"
	"sort"
)

var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Package represents one installable member of the monorepo.
// Values are immutable after manifest loading; synthesis never writes back.
type Package struct {
	Name    string
	Version string
	// Path is the package directory relative to the repo root. The core
	// treats it as an opaque handle for the action collaborator.
	Path string
	// Workspace is the workspace the package was discovered under.
	Workspace string
	// InternalDeps lists names of other monorepo packages this package
	// depends on, sorted and deduplicated.
	InternalDeps []string
	// ExternalDeps maps external dependency name to a version constraint.
	ExternalDeps map[string]string
}

// ValidName reports whether s is an acceptable package or dependency name.
func ValidName(s string) bool {
	return nameRegex.MatchString(s)
}

// DependsOn reports whether p declares a direct internal dependency on name.
func (p *Package) DependsOn(name string) bool {
	for _, d := range p.InternalDeps {
		if d == name {
			return true
		}
	}
	return false
}

// MergedManifest is the complete manifest handed to the external toolchain
// for one package: local and shared external constraints merged, internal
// dependencies translated into local path references.
type MergedManifest struct {
	Name    string            `yaml:"name"`
	Version string            `yaml:"version"`
	// Dependencies holds the merged external constraint per dependency name.
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
	// LocalPaths maps each internal dependency to its repo-relative path so
	// the installer builds it from the tree instead of fetching it.
	LocalPaths map[string]string `yaml:"local_paths,omitempty"`
}

// DependencyNames returns the merged external dependency names in sorted
// order, for deterministic output.
func (m *MergedManifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SharedDeps is the repo-wide dependency name to constraint mapping, owned
// by the repo root and read-only to every package.
type SharedDeps map[string]string

// Lock is the external lock mapping of dependency name to pinned version,
// consumed read-only during synthesis.
type Lock map[string]string

// PinnedVersion returns the locked version for name, or "" if unlocked.
func (l Lock) PinnedVersion(name string) string {
	return l[name]
}

// ManifestError reports a malformed or incomplete package manifest.
type ManifestError struct {
	Path   string
	Reason string
}

func (e *ManifestError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid manifest: %s", e.Reason)
	}
	return fmt.Sprintf("invalid manifest %s: %s", e.Path, e.Reason)
}
