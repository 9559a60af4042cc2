// Package workspace locates the monorepo root and loads everything the
// core consumes: the root declaration (workspaces and shared dependencies),
// the external lock mapping, and every package manifest.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"

	"github.com/monoforge/monoforge/internal/domain"
	"github.com/monoforge/monoforge/internal/manifest"
)

// RootFileName is the marker file declaring the monorepo root.
const RootFileName = "monorepo.toml"

// LockFileName is the external resolver's lock file, consumed read-only.
const LockFileName = "lock.toml"

var skipDirs = map[string]bool{
	".git":         true,
	".venv":        true,
	"node_modules": true,
	"dist":         true,
	"vendor":       true,
}

// rootSpec mirrors monorepo.toml
type rootSpec struct {
	Workspaces map[string][]string `toml:"workspaces"`
	Shared     struct {
		Dependencies map[string]string `toml:"dependencies"`
	} `toml:"shared"`
}

// lockSpec mirrors lock.toml: a list of pinned packages
type lockSpec struct {
	Package []struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// Workspace is a loaded monorepo: root path, shared dependency set, lock
// mapping and all discovered packages. Read-only once loaded.
type Workspace struct {
	Root     string
	packages []*domain.Package
	shared   domain.SharedDeps
	lock     domain.Lock
}

// Packages returns all discovered packages sorted by name.
func (w *Workspace) Packages() []*domain.Package { return w.packages }

// Shared returns the repo-wide shared dependency set.
func (w *Workspace) Shared() domain.SharedDeps { return w.shared }

// Lock returns the external lock mapping.
func (w *Workspace) Lock() domain.Lock { return w.lock }

// FindRoot walks up from dir to the directory containing monorepo.toml.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, RootFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found above %s", RootFileName, dir)
		}
		dir = parent
	}
}

// Load reads the root declaration, the lock file if present, and every
// package manifest under the declared workspaces. Manifest files load
// concurrently; any single invalid manifest fails the whole load, so no
// partial workspace is ever returned.
func Load(root string) (*Workspace, error) {
	data, err := os.ReadFile(filepath.Join(root, RootFileName))
	if err != nil {
		return nil, err
	}
	var spec rootSpec
	if err := toml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", RootFileName, err)
	}

	lock, err := loadLock(filepath.Join(root, LockFileName))
	if err != nil {
		return nil, err
	}

	w := &Workspace{
		Root:   root,
		shared: domain.SharedDeps{},
		lock:   lock,
	}
	for name, constraint := range spec.Shared.Dependencies {
		w.shared[name] = constraint
	}

	found, err := discover(root, spec.Workspaces)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		packages []*domain.Package
	)
	var g errgroup.Group
	g.SetLimit(8)
	for _, f := range found {
		f := f
		g.Go(func() error {
			raw, err := os.ReadFile(f.path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, filepath.Dir(f.path))
			if err != nil {
				return err
			}
			pkg, err := manifest.Load(raw, filepath.ToSlash(rel))
			if err != nil {
				return err
			}
			pkg.Workspace = f.workspace
			mu.Lock()
			packages = append(packages, pkg)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	w.packages = packages
	return w, nil
}

// loadLock reads the lock file into a name to pinned version mapping. A
// missing lock file is not an error: synthesis then inherits constraints
// unpinned.
func loadLock(path string) (domain.Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Lock{}, nil
		}
		return nil, err
	}
	var spec lockSpec
	if err := toml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", LockFileName, err)
	}
	lock := make(domain.Lock, len(spec.Package))
	for _, p := range spec.Package {
		lock[strings.ToLower(p.Name)] = p.Version
	}
	return lock, nil
}

type manifestFile struct {
	path      string
	workspace string
}

// discover walks every declared workspace directory and returns the paths
// of all package manifest files found, labeled with their workspace.
func discover(root string, workspaces map[string][]string) ([]manifestFile, error) {
	dirs := map[string]string{}
	if len(workspaces) == 0 {
		dirs[root] = ""
	}
	for ws, patterns := range workspaces {
		for _, pattern := range patterns {
			matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
			if err != nil {
				return nil, fmt.Errorf("bad workspace pattern %q: %w", pattern, err)
			}
			for _, m := range matches {
				base := filepath.Base(m)
				if skipDirs[base] || strings.HasPrefix(base, ".") {
					continue
				}
				info, err := os.Stat(m)
				if err == nil && info.IsDir() {
					dirs[m] = ws
				}
			}
		}
	}

	var found []manifestFile
	for dir, ws := range dirs {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if skipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && p != dir) {
					return filepath.SkipDir
				}
				return nil
			}
			for _, name := range manifest.FileNames {
				if d.Name() == name {
					found = append(found, manifestFile{path: p, workspace: ws})
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].path < found[j].path })
	return found, nil
}
