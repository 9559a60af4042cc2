package domain

import "time"

// Status represents the lifecycle state of a package within one run
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Terminal reports whether s is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Action is the per-package operation an orchestrator run performs
type Action string

const (
	ActionInstall Action = "install"
	ActionBuild   Action = "build"
)

// FailurePolicy controls how a package failure affects the rest of the run
type FailurePolicy string

const (
	// PolicyFailBranch skips every transitive dependent of a failed package
	// as soon as the failure is observed. Independent subtrees keep running.
	PolicyFailBranch FailurePolicy = "fail-branch"
	// PolicyContinueIndependent skips a dependent only once it is considered
	// for admission with a failed or skipped dependency.
	PolicyContinueIndependent FailurePolicy = "continue-independent"
	// PolicyFailFast stops admitting work after the first failure and skips
	// everything not yet terminal. In-flight packages finish.
	PolicyFailFast FailurePolicy = "fail-fast"
)

// ParsePolicy converts a flag value into a FailurePolicy.
func ParsePolicy(s string) (FailurePolicy, bool) {
	switch FailurePolicy(s) {
	case PolicyFailBranch, PolicyContinueIndependent, PolicyFailFast:
		return FailurePolicy(s), true
	case "":
		return PolicyFailBranch, true
	}
	return "", false
}

// TaskResult is the outcome of one package's action within a run
type TaskResult struct {
	Package  string
	Status   Status
	Err      error
	Duration time.Duration
}

// Report aggregates one TaskResult per selected package for a whole run
type Report struct {
	RunID      string
	Action     Action
	Policy     FailurePolicy
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []TaskResult
}

// Counts returns the number of succeeded, failed and skipped packages.
func (r *Report) Counts() (succeeded, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return
}

// OK reports whether the run succeeded: no package failed or was skipped.
func (r *Report) OK() bool {
	_, failed, skipped := r.Counts()
	return failed == 0 && skipped == 0
}

// Result returns the result for the named package, if present.
func (r *Report) Result(name string) (TaskResult, bool) {
	for _, res := range r.Results {
		if res.Package == name {
			return res, true
		}
	}
	return TaskResult{}, false
}
