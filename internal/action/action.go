// Package action defines the external collaborator invoked once per
// package with its synthesized manifest and package path.
package action

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/monoforge/monoforge/internal/domain"
)

// Runner executes one package action. Implementations must honor context
// cancellation cooperatively; the orchestrator signals intent to stop but
// allows a running action to reach a terminal state.
type Runner interface {
	Run(ctx context.Context, m *domain.MergedManifest, path string) error
}

// Failure reports a non-zero exit from the external tool.
type Failure struct {
	Package string
	Output  string
	Err     error
}

func (e *Failure) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("action failed for %q: %v", e.Package, e.Err)
	}
	return fmt.Sprintf("action failed for %q: %v\n%s", e.Package, e.Err, e.Output)
}

func (e *Failure) Unwrap() error { return e.Err }

// Exec runs a configured external command per package. The synthesized
// manifest is written to a temporary file and the command is invoked as
//
//	<command> [args...] --manifest <file> <package path>
type Exec struct {
	// Command is the executable plus fixed leading arguments.
	Command []string
	// Root is the repo root; package paths are resolved against it.
	Root string
	// Env entries are appended to the inherited environment.
	Env []string
}

// Run writes the manifest, invokes the command and captures its combined
// output. A non-zero exit returns a *Failure.
func (x *Exec) Run(ctx context.Context, m *domain.MergedManifest, path string) error {
	if len(x.Command) == 0 {
		return fmt.Errorf("no action command configured")
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest for %q: %w", m.Name, err)
	}

	tmp, err := os.CreateTemp("", "monoforge-manifest-*.yml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	args := append(append([]string{}, x.Command[1:]...), "--manifest", tmp.Name(), filepath.Join(x.Root, path))
	cmd := exec.CommandContext(ctx, x.Command[0], args...)
	cmd.Dir = x.Root
	cmd.Env = append(os.Environ(), x.Env...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return &Failure{
			Package: m.Name,
			Output:  strings.TrimSpace(out.String()),
			Err:     err,
		}
	}
	return nil
}
