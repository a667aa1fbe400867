// Package sweep implements BackgroundSweeper: an optional scheduled task
// that eagerly reclaims expired entries across every shard of a
// lib/store.Router, rather than relying solely on lazy expiry at read time.
//
// It is modeled as a single dedicated background worker consuming a
// cancellable ticker, in the same shape as the teacher's startGC/stopGC
// goroutine-lifecycle idiom (lib/db/engines/maple/maple.go), generalized
// from "per-shard GC goroutine" to "one worker sweeping all shards".
package sweep

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/emberkv/ember/lib/store"
)

// gracePeriod bounds how long Stop waits for an in-flight sweep to finish.
const gracePeriod = 5 * time.Second

// Sweeper drives periodic SweepAll calls against a Router.
type Sweeper struct {
	router *store.Router

	mu      sync.Mutex
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Sweeper over router. Call Start to begin the schedule.
func New(router *store.Router) *Sweeper {
	return &Sweeper{router: router}
}

// Start schedules SweepExpired on each shard at the given period.
// intervalMillis must be positive; starting twice fails with AlreadyRunning.
func (s *Sweeper) Start(intervalMillis int64) error {
	if intervalMillis <= 0 {
		return store.ErrInvalidArgument("intervalMillis must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.CompareAndSwap(false, true) {
		return store.ErrAlreadyRunning("background sweeper")
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(time.Duration(intervalMillis)*time.Millisecond, s.stopCh, s.doneCh)
	return nil
}

func (s *Sweeper) run(interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.router.SweepAll()
		}
	}
}

// Stop cancels the schedule and waits up to the grace period for the
// in-flight sweep to finish. Stopping when not running fails with
// NotRunning.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.CompareAndSwap(true, false) {
		return store.ErrNotRunning("background sweeper")
	}

	close(s.stopCh)
	select {
	case <-s.doneCh:
	case <-time.After(gracePeriod):
	}
	return nil
}
