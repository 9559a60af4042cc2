package orchestrator

import "sync"

// pool manages a fixed number of worker slots
type pool struct {
	maxJobs   int
	available int
	mu        sync.Mutex
}

// newPool creates a pool with the given capacity
func newPool(maxJobs int) *pool {
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &pool{
		maxJobs:   maxJobs,
		available: maxJobs,
	}
}

// acquire tries to claim a worker slot. Returns true if successful.
func (p *pool) acquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.available <= 0 {
		return false
	}
	p.available--
	return true
}

// release returns a worker slot to the pool.
func (p *pool) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.available < p.maxJobs {
		p.available++
	}
}
