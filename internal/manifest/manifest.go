// Package manifest loads and validates per-package manifests (project.yml)
// into the strict domain representation. Parsing is a pure function; all
// downstream components operate only on the validated domain.Package.
package manifest

import (
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/monoforge/monoforge/internal/domain"
)

// FileNames are the manifest file names recognized during discovery.
var FileNames = []string{"project.yml", "project.yaml"}

var versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.-]+)?$`)

// raw mirrors the on-disk manifest schema
type raw struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	Dependencies struct {
		Internal []string          `yaml:"internal"`
		External map[string]string `yaml:"external"`
	} `yaml:"dependencies"`
}

// Load parses and validates one package manifest. path is the package
// directory the manifest was read from, recorded as the opaque package
// location; it also labels errors.
func Load(data []byte, path string) (*domain.Package, error) {
	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, &domain.ManifestError{Path: path, Reason: err.Error()}
	}
	return validate(&r, path)
}

func validate(r *raw, path string) (*domain.Package, error) {
	fail := func(format string, args ...interface{}) (*domain.Package, error) {
		return nil, &domain.ManifestError{Path: path, Reason: fmt.Sprintf(format, args...)}
	}

	if r.Name == "" {
		return fail("missing required field %q", "name")
	}
	if !domain.ValidName(r.Name) {
		return fail("invalid package name %q", r.Name)
	}
	if r.Version == "" {
		return fail("missing required field %q", "version")
	}
	if !versionRegex.MatchString(r.Version) {
		return fail("invalid version %q", r.Version)
	}

	seen := make(map[string]bool, len(r.Dependencies.Internal))
	internal := make([]string, 0, len(r.Dependencies.Internal))
	for _, dep := range r.Dependencies.Internal {
		if !domain.ValidName(dep) {
			return fail("invalid internal dependency name %q", dep)
		}
		if seen[dep] {
			return fail("duplicate internal dependency %q", dep)
		}
		seen[dep] = true
		internal = append(internal, dep)
	}
	sort.Strings(internal)

	external := make(map[string]string, len(r.Dependencies.External))
	for name, constraint := range r.Dependencies.External {
		if !domain.ValidName(name) {
			return fail("invalid external dependency name %q", name)
		}
		if seen[name] {
			return fail("dependency %q declared as both internal and external", name)
		}
		if constraint == "" {
			constraint = "*"
		}
		external[name] = constraint
	}

	return &domain.Package{
		Name:         r.Name,
		Version:      r.Version,
		Path:         path,
		InternalDeps: internal,
		ExternalDeps: external,
	}, nil
}
