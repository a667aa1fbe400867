package stats

import "testing"

func TestSnapshotAdd(t *testing.T) {
	a := Snapshot{Gets: 1, Hits: 1}
	b := Snapshot{Gets: 2, Misses: 2}
	sum := a.Add(b)
	if sum.Gets != 3 || sum.Hits != 1 || sum.Misses != 2 {
		t.Errorf("Add() = %+v; want Gets=3 Hits=1 Misses=2", sum)
	}
}

func TestCountersIncrementAndReset(t *testing.T) {
	c := New()
	c.IncrGets()
	c.IncrGets()
	c.IncrHits()
	c.IncrMisses()
	c.IncrSets()
	c.IncrDeletes()
	c.IncrExpires()
	c.IncrEvictions()
	c.AddExpirations(3)

	snap := c.Snapshot()
	if snap.Gets != 2 || snap.Hits != 1 || snap.Misses != 1 {
		t.Errorf("Snapshot() = %+v", snap)
	}
	if snap.Expirations != 3 {
		t.Errorf("Expirations = %d; want 3", snap.Expirations)
	}

	c.Reset()
	if c.Snapshot() != (Snapshot{}) {
		t.Errorf("Snapshot() after Reset = %+v; want zero value", c.Snapshot())
	}
}

func TestObserveValueSize(t *testing.T) {
	c := New()
	c.ObserveValueSize(10)
	c.ObserveValueSize(20)
	if mean := c.ValueSizeMean(); mean <= 0 {
		t.Errorf("ValueSizeMean() = %v; want > 0", mean)
	}
}
