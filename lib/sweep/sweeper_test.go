package sweep

import (
	"testing"
	"time"

	"github.com/emberkv/ember/lib/engine"
	"github.com/emberkv/ember/lib/store"
)

func newTestRouter(t *testing.T, clock engine.Clock) *store.Router {
	r, err := store.NewRouter(store.Config{
		ShardCount:       1,
		CapacityPerShard: 16,
		MaxKeyBytes:      store.Unbounded,
		MaxValueBytes:    store.Unbounded,
		Clock:            clock,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

func TestSweeperReclaimsExpiredEntries(t *testing.T) {
	r := newTestRouter(t, nil)
	r.Insert("a", []byte("1"))
	if _, err := r.Expire("a", 10); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	s := New(r)
	if err := s.Start(10); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if r.Size() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("sweeper did not reclaim expired entry in time; Size() = %d", r.Size())
}

func TestSweeperLifecycle(t *testing.T) {
	r := newTestRouter(t, nil)
	s := New(r)

	if err := s.Start(50); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(50); err == nil {
		t.Errorf("second Start should fail with AlreadyRunning")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err == nil {
		t.Errorf("second Stop should fail with NotRunning")
	}
}

func TestSweeperRejectsNonPositiveInterval(t *testing.T) {
	s := New(newTestRouter(t, nil))
	if err := s.Start(0); err == nil {
		t.Errorf("Start(0) should fail")
	}
}
