package engine_test

import (
	"testing"

	"github.com/emberkv/ember/lib/engine"
	"github.com/emberkv/ember/lib/engine/enginetest"
)

func TestLruTtlMap(t *testing.T) {
	enginetest.RunEngineTests(t, "LruTtlMap", func(capacity int) *engine.LruTtlMap {
		return engine.New(capacity, engine.SystemClock{})
	})
}

type fakeClock struct{ now int64 }

func (c *fakeClock) NowMillis() int64 { return c.now }

func TestLazyExpiry(t *testing.T) {
	clock := &fakeClock{now: 1000}
	m := engine.New(4, clock)

	m.Insert("x", []byte("v"))
	if ok, err := m.Expire("x", 50); err != nil || !ok {
		t.Fatalf("Expire(x, 50) = %v, %v; want true, nil", ok, err)
	}

	clock.now += 20
	if v, ok := m.Get("x"); !ok || string(v) != "v" {
		t.Errorf("Get(x) at t+20 = %q, %v; want v, true", v, ok)
	}

	clock.now += 200
	if _, ok := m.Get("x"); ok {
		t.Errorf("Get(x) at t+220 should miss")
	}
	if got := m.Counters().Snapshot().Expirations; got != 1 {
		t.Errorf("Expirations = %d; want 1", got)
	}
	if m.Size() != 0 {
		t.Errorf("Size() = %d; want 0", m.Size())
	}

	// subsequent get does not re-count
	if _, ok := m.Get("x"); ok {
		t.Errorf("second Get(x) should still miss")
	}
	if got := m.Counters().Snapshot().Expirations; got != 1 {
		t.Errorf("Expirations after second get = %d; want 1", got)
	}
}

func TestTTLClearedOnOverwrite(t *testing.T) {
	clock := &fakeClock{now: 1000}
	m := engine.New(4, clock)

	m.Insert("x", []byte("v1"))
	if _, err := m.Expire("x", 10); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	m.Insert("x", []byte("v2"))

	clock.now += 1000 // well past the old TTL
	v, ok := m.Get("x")
	if !ok || string(v) != "v2" {
		t.Errorf("Get(x) = %q, %v; want v2, true (overwrite must clear TTL)", v, ok)
	}
}

func TestExpireDoesNotAffectRecency(t *testing.T) {
	m := engine.New(2, engine.SystemClock{})
	m.Insert("k1", []byte("1"))
	m.Insert("k2", []byte("2"))

	// touching k1 via expire must not make it MRU
	if _, err := m.Expire("k1", 60_000); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	m.Insert("k3", []byte("3"))

	if _, ok := m.Get("k1"); ok {
		t.Errorf("k1 should have been evicted despite the Expire call")
	}
	if _, ok := m.Get("k2"); !ok {
		t.Errorf("k2 should still be present")
	}
}

func TestCounterIdentity(t *testing.T) {
	m := engine.New(4, engine.SystemClock{})
	m.Insert("a", []byte("1"))
	m.Insert("b", []byte("2"))
	m.Get("a")
	m.Get("missing")

	snap := m.Counters().Snapshot()
	if snap.Gets != snap.Hits+snap.Misses {
		t.Errorf("gets=%d hits=%d misses=%d: gets != hits+misses", snap.Gets, snap.Hits, snap.Misses)
	}
}

func TestSweepExpired(t *testing.T) {
	clock := &fakeClock{now: 1000}
	m := engine.New(4, clock)
	m.Insert("a", []byte("1"))
	m.Insert("b", []byte("2"))
	m.Expire("a", 10)

	clock.now += 100
	n := m.SweepExpired()
	if n != 1 {
		t.Errorf("SweepExpired() = %d; want 1", n)
	}
	if m.Size() != 1 {
		t.Errorf("Size() = %d; want 1", m.Size())
	}
}

func TestCapacityInvariant(t *testing.T) {
	m := engine.New(3, engine.SystemClock{})
	for i := 0; i < 100; i++ {
		m.Insert(string(rune('a'+(i%26))), []byte{byte(i)})
		if m.Size() > 3 {
			t.Fatalf("Size() = %d exceeds capacity 3 after %d inserts", m.Size(), i)
		}
	}
}
