package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/emberkv/ember/lib/engine/internal"
	"github.com/emberkv/ember/lib/stats"
)

// Clock is a monotonic-wall-clock source returning the current time in
// milliseconds. Tests substitute a fake clock to control expiry precisely.
type Clock interface {
	NowMillis() int64
}

// SystemClock is the Clock backed by the real wall clock.
type SystemClock struct{}

// NowMillis returns time.Now() as Unix milliseconds.
func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// SnapshotEntry is one (key, value, optional expiration) triple as produced
// by DrainForSnapshot and consumed by LoadFromSnapshot.
type SnapshotEntry struct {
	Key              string
	Value            []byte
	HasExpiration    bool
	ExpirationMillis int64
}

// ErrInvalidArgument is returned by Expire for a non-positive ttlMillis.
type ErrInvalidArgument struct {
	Reason string
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}

// LruTtlMap is a fixed-capacity, thread-safe map with LRU eviction and
// inline per-key TTL. All mutation and lookup happens under a single mutex;
// per spec this is sufficient since shard operations never span shards.
type LruTtlMap struct {
	mu       sync.Mutex
	arena    *internal.Arena
	clock    Clock
	counters *stats.Counters
}

// New creates an LruTtlMap with the given fixed capacity (must be >= 1).
func New(capacity int, clock Clock) *LruTtlMap {
	if capacity < 1 {
		panic("engine: capacity must be >= 1")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &LruTtlMap{
		arena:    internal.NewArena(capacity),
		clock:    clock,
		counters: stats.New(),
	}
}

// Counters returns the shard's StatsCounters for aggregation by the router.
func (m *LruTtlMap) Counters() *stats.Counters { return m.counters }

// Capacity returns the fixed node capacity of the map.
func (m *LruTtlMap) Capacity() int { return m.arena.Capacity() }

// Insert upserts key. If key already exists its node is updated in place
// (value replaced, expiration cleared) and moved to the head. If key is new
// and the map is full, the tail (least-recently-used) node is evicted first.
func (m *LruTtlMap) Insert(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneBytes(value)

	if idx, ok := m.arena.Lookup(key); ok {
		node := m.arena.At(idx)
		node.Value = stored
		node.HasExpire = false
		node.ExpireAt = 0
		m.arena.MoveToHead(idx)
		m.counters.IncrSets()
		m.counters.ObserveValueSize(len(value))
		return
	}

	if m.arena.IsFull() {
		m.evictTail()
	}
	m.arena.Insert(key, stored, false, 0)
	m.counters.IncrSets()
	m.counters.ObserveValueSize(len(value))
}

// cloneBytes returns an independent copy of b so neither the store nor the
// caller can mutate shared state through the other's reference.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// evictTail removes the least-recently-used node and counts an eviction.
// Callers must hold m.mu.
func (m *LruTtlMap) evictTail() {
	tail := m.arena.Tail()
	if tail < 0 {
		return
	}
	m.arena.Remove(tail)
	m.counters.IncrEvictions()
}

// Get returns the current value for key, performing lazy expiry first.
func (m *LruTtlMap) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters.IncrGets()

	idx, ok := m.arena.Lookup(key)
	if !ok {
		m.counters.IncrMisses()
		return nil, false
	}

	node := m.arena.At(idx)
	if m.isExpired(node) {
		m.arena.Remove(idx)
		m.counters.AddExpirations(1)
		m.counters.IncrMisses()
		return nil, false
	}

	m.counters.IncrHits()
	m.arena.MoveToHead(idx)
	return cloneBytes(node.Value), true
}

// Delete removes key if present and reports whether it was removed. It does
// not count an expiration even if the key had already expired.
func (m *LruTtlMap) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters.IncrDeletes()

	idx, ok := m.arena.Lookup(key)
	if !ok {
		return false
	}
	m.arena.Remove(idx)
	return true
}

// Expire stamps key's expiration to now+ttlMillis. ttlMillis must be
// positive. Returns false without stamping if the key is absent or already
// expired (the stale entry is removed in that case). Does not affect
// recency order.
func (m *LruTtlMap) Expire(key string, ttlMillis int64) (bool, error) {
	if ttlMillis <= 0 {
		return false, &ErrInvalidArgument{Reason: "ttlMillis must be positive"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters.IncrExpires()

	idx, ok := m.arena.Lookup(key)
	if !ok {
		return false, nil
	}
	node := m.arena.At(idx)
	if m.isExpired(node) {
		m.arena.Remove(idx)
		m.counters.AddExpirations(1)
		return false, nil
	}

	node.HasExpire = true
	node.ExpireAt = m.clock.NowMillis() + ttlMillis
	return true, nil
}

// ContainsKey reports whether key is present and unexpired, without
// revealing the value or affecting recency.
func (m *LruTtlMap) ContainsKey(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.arena.Lookup(key)
	if !ok {
		return false
	}
	node := m.arena.At(idx)
	if m.isExpired(node) {
		m.arena.Remove(idx)
		m.counters.AddExpirations(1)
		return false
	}
	return true
}

// Size returns the number of entries currently indexed. Expired-but-not-yet
// -swept entries are counted as live until the next operation touches them,
// per spec §9 Open Questions ("size() may return an approximate count").
func (m *LruTtlMap) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.arena.Size()
}

// Clear drops every entry atomically.
func (m *LruTtlMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arena.Clear()
}

// SweepExpired scans all entries once, removes those past expiration, and
// returns how many were removed.
func (m *LruTtlMap) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.NowMillis()
	var expired []int
	m.arena.Each(func(idx int, n *internal.Node) bool {
		if n.HasExpire && n.ExpireAt <= now {
			expired = append(expired, idx)
		}
		return true
	})
	for _, idx := range expired {
		m.arena.Remove(idx)
	}
	m.counters.AddExpirations(uint64(len(expired)))
	return len(expired)
}

// DrainForSnapshot returns every live, unexpired entry in
// most-recently-used-first order. Entries discovered expired during the
// drain are removed and counted as expirations.
func (m *LruTtlMap) DrainForSnapshot() []SnapshotEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.NowMillis()
	out := make([]SnapshotEntry, 0, m.arena.Size())
	var expired []int
	m.arena.Each(func(idx int, n *internal.Node) bool {
		if n.HasExpire && n.ExpireAt <= now {
			expired = append(expired, idx)
			return true
		}
		out = append(out, SnapshotEntry{
			Key:              n.Key,
			Value:            n.Value,
			HasExpiration:    n.HasExpire,
			ExpirationMillis: n.ExpireAt,
		})
		return true
	})
	for _, idx := range expired {
		m.arena.Remove(idx)
	}
	m.counters.AddExpirations(uint64(len(expired)))
	return out
}

// LoadFromSnapshot replaces the map's content with entries, dropping those
// already expired, and preserves recency order in the order entries appear
// (entries[0] becomes most-recently-used). If entries exceeds the map's
// capacity, the oldest (last) entries are dropped by LRU as they load.
func (m *LruTtlMap) LoadFromSnapshot(entries []SnapshotEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.arena.Clear()
	now := m.clock.NowMillis()

	// Insert from least-recent to most-recent so the final head is
	// entries[0], matching the documented recency order.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.HasExpiration && e.ExpirationMillis <= now {
			continue
		}
		if m.arena.IsFull() {
			m.evictTail()
		}
		m.arena.Insert(e.Key, e.Value, e.HasExpiration, e.ExpirationMillis)
	}
}

// isExpired reports whether node's TTL has passed as of now. Callers must
// hold m.mu.
func (m *LruTtlMap) isExpired(n *internal.Node) bool {
	return n.HasExpire && n.ExpireAt <= m.clock.NowMillis()
}
