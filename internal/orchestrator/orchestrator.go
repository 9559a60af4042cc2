// Package orchestrator drives install/build actions across a selected set
// of packages, admitting work as dependencies succeed, bounded by a worker
// slot pool, and collecting one TaskResult per package.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/monoforge/monoforge/internal/action"
	"github.com/monoforge/monoforge/internal/domain"
	"github.com/monoforge/monoforge/internal/graph"
	"github.com/monoforge/monoforge/internal/synth"
)

// InvariantError reports an internal scheduling inconsistency. It is fatal:
// the run aborts and in-flight workers are signaled to stop.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("orchestrator invariant violated: %s", e.Reason)
}

// Config assembles the collaborators and policy for one run.
type Config struct {
	Graph    *graph.Graph
	Selected map[string]bool
	Action   domain.Action
	Runner   action.Runner
	Shared   domain.SharedDeps
	Lock     domain.Lock
	Synth    synth.Options
	// Jobs bounds the number of concurrently running package actions.
	Jobs   int
	Policy domain.FailurePolicy
}

// Orchestrator executes one run. The graph and selection are read-only
// during the run; per-package status is owned by the run loop goroutine and
// updated only there, with worker completions delivered over a channel.
type Orchestrator struct {
	cfg       Config
	names     []string // selected, lexicographic
	state     map[string]domain.Status
	manifests map[string]*domain.MergedManifest
	results   map[string]domain.TaskResult
}

type completion struct {
	name     string
	err      error
	duration time.Duration
}

// New prepares a run over the configured selection.
func New(cfg Config) *Orchestrator {
	names := make([]string, 0, len(cfg.Selected))
	for name := range cfg.Selected {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Orchestrator{
		cfg:       cfg,
		names:     names,
		state:     make(map[string]domain.Status, len(names)),
		manifests: make(map[string]*domain.MergedManifest, len(names)),
		results:   make(map[string]domain.TaskResult, len(names)),
	}
}

// Run synthesizes the manifest for every selected package, then executes
// the action across the selection in dependency order. The returned report
// is complete even when the run was cancelled or a policy stopped it early;
// err is non-nil only for fatal conditions (invariant violation,
// cancellation), never for individual package failures.
func (o *Orchestrator) Run(ctx context.Context) (*domain.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := &domain.Report{
		RunID:     uuid.NewString(),
		Action:    o.cfg.Action,
		Policy:    o.cfg.Policy,
		StartedAt: time.Now(),
	}

	// Every manifest is synthesized before anything is admitted; a package
	// is never executed before its synthesis completed.
	for _, name := range o.names {
		pkg, ok := o.cfg.Graph.Package(name)
		if !ok {
			return nil, &InvariantError{Reason: fmt.Sprintf("selected package %q not in graph", name)}
		}
		o.manifests[name] = synth.Synthesize(pkg, o.cfg.Graph, o.cfg.Shared, o.cfg.Lock, o.cfg.Synth)
		o.state[name] = domain.StatusPending
	}

	pool := newPool(o.cfg.Jobs)
	done := make(chan completion)
	running := 0
	admitting := true

	for {
		if admitting {
			launched, skipped, err := o.admit(ctx, pool, done)
			running += launched
			if err != nil {
				cancel()
				o.drain(done, running)
				return nil, err
			}
			if skipped > 0 {
				// a skip can block packages examined earlier in the pass;
				// re-run admission until the cascade settles
				continue
			}
		}

		if o.allTerminal() {
			break
		}

		if running == 0 {
			if !admitting {
				o.skipRemaining()
				continue
			}
			// nothing running and nothing admissible: the readiness
			// predicate can no longer make progress
			return nil, &InvariantError{Reason: "no runnable package but run not finished"}
		}

		select {
		case <-ctx.Done():
			// stop admitting; let in-flight actions reach a terminal state
			admitting = false
			o.drain(done, running)
			running = 0
			o.skipRemaining()
		case c := <-done:
			running--
			pool.release()
			if err := o.complete(c); err != nil {
				cancel()
				o.drain(done, running)
				return nil, err
			}
			if c.err != nil && o.cfg.Policy == domain.PolicyFailFast {
				admitting = false
			}
		}
	}

	report.FinishedAt = time.Now()
	for _, name := range o.names {
		report.Results = append(report.Results, o.results[name])
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// admit moves every ready package to Running, bounded by the slot pool, and
// returns the number of workers launched and the number of packages skipped
// for a blocked dependency. Packages are considered in lexicographic order
// so admission is deterministic.
func (o *Orchestrator) admit(ctx context.Context, pool *pool, done chan<- completion) (int, int, error) {
	launched := 0
	skipped := 0
	for _, name := range o.names {
		if o.state[name] != domain.StatusPending {
			continue
		}
		switch o.depsState(name) {
		case depsBlocked:
			o.skip(name)
			skipped++
			continue
		case depsWaiting:
			continue
		}

		o.state[name] = domain.StatusReady
		if !pool.acquire() {
			// stays Ready until a slot frees up; re-examined next admit
			o.state[name] = domain.StatusPending
			return launched, skipped, nil
		}

		m := o.manifests[name]
		if m == nil {
			return launched, skipped, &InvariantError{Reason: fmt.Sprintf("package %q admitted without synthesized manifest", name)}
		}
		pkg, _ := o.cfg.Graph.Package(name)

		o.state[name] = domain.StatusRunning
		launched++
		go func(name, path string, m *domain.MergedManifest) {
			start := time.Now()
			err := o.cfg.Runner.Run(ctx, m, path)
			done <- completion{name: name, err: err, duration: time.Since(start)}
		}(name, pkg.Path, m)
	}
	return launched, skipped, nil
}

type depsResult int

const (
	depsSatisfied depsResult = iota
	depsWaiting
	depsBlocked
)

// depsState evaluates the readiness predicate for name over its selected
// internal dependencies; unselected dependencies count as satisfied.
func (o *Orchestrator) depsState(name string) depsResult {
	res := depsSatisfied
	for _, dep := range o.cfg.Graph.Deps(name) {
		if !o.cfg.Selected[dep] {
			continue
		}
		switch o.state[dep] {
		case domain.StatusSucceeded:
		case domain.StatusFailed, domain.StatusSkipped:
			return depsBlocked
		default:
			res = depsWaiting
		}
	}
	return res
}

// complete records a worker's terminal state and applies failure policy.
func (o *Orchestrator) complete(c completion) error {
	if o.state[c.name] != domain.StatusRunning {
		return &InvariantError{Reason: fmt.Sprintf("completion for %q in state %s", c.name, o.state[c.name])}
	}

	status := domain.StatusSucceeded
	if c.err != nil {
		status = domain.StatusFailed
	}
	o.state[c.name] = status
	o.results[c.name] = domain.TaskResult{
		Package:  c.name,
		Status:   status,
		Err:      c.err,
		Duration: c.duration,
	}

	if c.err != nil && o.cfg.Policy == domain.PolicyFailBranch {
		// propagate along dependency edges only: unrelated branches proceed
		for _, dep := range o.cfg.Graph.TransitiveDependents(c.name) {
			if o.cfg.Selected[dep] && !o.state[dep].Terminal() {
				o.skip(dep)
			}
		}
	}
	return nil
}

// skip marks a package Skipped without running it.
func (o *Orchestrator) skip(name string) {
	o.state[name] = domain.StatusSkipped
	o.results[name] = domain.TaskResult{Package: name, Status: domain.StatusSkipped}
}

// skipRemaining skips every package not yet terminal.
func (o *Orchestrator) skipRemaining() {
	for _, name := range o.names {
		if !o.state[name].Terminal() {
			o.skip(name)
		}
	}
}

// drain waits for n in-flight workers and records their outcomes.
func (o *Orchestrator) drain(done <-chan completion, n int) {
	for i := 0; i < n; i++ {
		c := <-done
		if o.state[c.name] == domain.StatusRunning {
			_ = o.complete(c)
		}
	}
}

func (o *Orchestrator) allTerminal() bool {
	for _, name := range o.names {
		if !o.state[name].Terminal() {
			return false
		}
	}
	return true
}
