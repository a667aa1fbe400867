// Package stats provides the per-shard atomic counters used by the storage
// engine and exposes them through a rcrowley/go-metrics histogram for value
// size, mirroring the role the teacher declares for go-metrics but never
// wires up.
package stats

import (
	"sync/atomic"

	gometrics "github.com/rcrowley/go-metrics"
)

// Snapshot is an immutable point-in-time read of a Counters instance.
type Snapshot struct {
	Gets        uint64
	Hits        uint64
	Misses      uint64
	Sets        uint64
	Deletes     uint64
	Expires     uint64
	Evictions   uint64
	Expirations uint64
}

// Add returns the element-wise sum of s and other, used to aggregate
// per-shard snapshots into a store-wide total.
func (s Snapshot) Add(other Snapshot) Snapshot {
	return Snapshot{
		Gets:        s.Gets + other.Gets,
		Hits:        s.Hits + other.Hits,
		Misses:      s.Misses + other.Misses,
		Sets:        s.Sets + other.Sets,
		Deletes:     s.Deletes + other.Deletes,
		Expires:     s.Expires + other.Expires,
		Evictions:   s.Evictions + other.Evictions,
		Expirations: s.Expirations + other.Expirations,
	}
}

// Counters holds the monotonically non-decreasing per-shard counters named
// in the specification, each updated with atomic add/increment semantics,
// plus an exponentially decaying sample of observed value sizes.
type Counters struct {
	gets        atomic.Uint64
	hits        atomic.Uint64
	misses      atomic.Uint64
	sets        atomic.Uint64
	deletes     atomic.Uint64
	expires     atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64

	valueSize gometrics.Histogram
}

// New creates an empty Counters.
func New() *Counters {
	return &Counters{
		valueSize: gometrics.NewHistogram(gometrics.NewExpDecaySample(1028, 0.015)),
	}
}

func (c *Counters) IncrGets()        { c.gets.Add(1) }
func (c *Counters) IncrHits()        { c.hits.Add(1) }
func (c *Counters) IncrMisses()      { c.misses.Add(1) }
func (c *Counters) IncrSets()        { c.sets.Add(1) }
func (c *Counters) IncrDeletes()     { c.deletes.Add(1) }
func (c *Counters) IncrExpires()     { c.expires.Add(1) }
func (c *Counters) IncrEvictions()   { c.evictions.Add(1) }
func (c *Counters) AddExpirations(n uint64) {
	if n > 0 {
		c.expirations.Add(n)
	}
}

// ObserveValueSize records the byte length of a value written by insert, for
// STATS/metrics reporting of size distribution.
func (c *Counters) ObserveValueSize(n int) {
	c.valueSize.Update(int64(n))
}

// ValueSizeMean returns the mean of the observed value-size sample, 0 if empty.
func (c *Counters) ValueSizeMean() float64 {
	return c.valueSize.Mean()
}

// ValueSizeSumCount returns the sum and the number of the values currently
// held in the value-size sample, both taken from the same read of it,
// letting callers aggregate a weighted mean across shards rather than
// averaging each shard's mean unweighted.
func (c *Counters) ValueSizeSumCount() (sum int64, count int64) {
	values := c.valueSize.Sample().Values()
	return gometrics.SampleSum(values), int64(len(values))
}

// Snapshot returns an immutable copy of the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Gets:        c.gets.Load(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		Deletes:     c.deletes.Load(),
		Expires:     c.expires.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}
}

// Reset zeroes every counter and clears the size sample.
func (c *Counters) Reset() {
	c.gets.Store(0)
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	c.deletes.Store(0)
	c.expires.Store(0)
	c.evictions.Store(0)
	c.expirations.Store(0)
	c.valueSize.Clear()
}
