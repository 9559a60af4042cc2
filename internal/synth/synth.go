// Package synth materializes the complete manifest handed to the external
// toolchain for one package. Synthesis is a pure function of the package,
// the repo-wide shared dependency set and the lock mapping; it never
// mutates any of its inputs.
package synth

import (
	"path"

	"github.com/monoforge/monoforge/internal/domain"
	"github.com/monoforge/monoforge/internal/graph"
)

// Options controls synthesis behavior.
type Options struct {
	// PinLockedVersions replaces a merged constraint with the pinned version
	// from the lock mapping when one exists.
	PinLockedVersions bool
}

// Synthesize merges a package's local external constraints with the shared
// set. Local constraints win on key collision; shared-only keys are
// inherited as-is; local-only keys pass through unchanged. Internal
// dependencies are emitted as repo-relative path references so the
// installer builds them from the monorepo tree.
func Synthesize(pkg *domain.Package, g *graph.Graph, shared domain.SharedDeps, lock domain.Lock, opts Options) *domain.MergedManifest {
	merged := make(map[string]string, len(shared)+len(pkg.ExternalDeps))
	for name, constraint := range shared {
		merged[name] = constraint
	}
	for name, constraint := range pkg.ExternalDeps {
		merged[name] = constraint
	}
	if opts.PinLockedVersions {
		for name := range merged {
			if pinned := lock.PinnedVersion(name); pinned != "" {
				merged[name] = pinned
			}
		}
	}

	local := make(map[string]string, len(pkg.InternalDeps))
	for _, dep := range pkg.InternalDeps {
		if depPkg, ok := g.Package(dep); ok {
			local[dep] = path.Clean(depPkg.Path)
		}
	}

	return &domain.MergedManifest{
		Name:         pkg.Name,
		Version:      pkg.Version,
		Dependencies: merged,
		LocalPaths:   local,
	}
}
