// Package schedule runs periodic full installs/builds from a cron
// expression, for keeping long-lived development environments current.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseCron parses a five-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// RunFunc performs one scheduled run.
type RunFunc func(ctx context.Context) error

// Scheduler triggers a RunFunc on a cron schedule, never overlapping runs.
type Scheduler struct {
	schedule cron.Schedule
	lastRun  time.Time
	running  bool
	mu       sync.Mutex
}

// New creates a scheduler from a cron expression.
func New(expr string) (*Scheduler, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &Scheduler{schedule: sched}, nil
}

// NextRun returns the next scheduled run time.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.lastRun
	if from.IsZero() {
		from = time.Now()
	}
	return s.schedule.Next(from)
}

// shouldRun reports whether a run is due at now.
func (s *Scheduler) shouldRun(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	last := s.lastRun
	if last.IsZero() {
		last = now.Add(-time.Minute)
	}
	return now.After(s.schedule.Next(last))
}

func (s *Scheduler) markRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *Scheduler) markComplete(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.lastRun = at
}

// Start loops until the context is cancelled, kicking off run when due.
// Run errors are reported through onError and do not stop the loop.
func (s *Scheduler) Start(ctx context.Context, run RunFunc, onError func(error)) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now) {
				continue
			}
			s.markRunning()
			if err := run(ctx); err != nil && onError != nil {
				onError(err)
			}
			s.markComplete(time.Now())
		}
	}
}
