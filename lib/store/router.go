package store

import (
	"hash/fnv"
	"sync"

	"github.com/emberkv/ember/lib/engine"
	"github.com/emberkv/ember/lib/stats"
)

// Unbounded disables a size limit dimension.
const Unbounded int64 = -1

// Config configures a new Router.
type Config struct {
	ShardCount       int // must be a positive power of two
	CapacityPerShard int // must be >= 1
	MaxKeyBytes      int64
	MaxValueBytes    int64
	Clock            engine.Clock // nil uses engine.SystemClock
}

// Router is the sharded façade: a fixed array of LruTtlMap shards, key
// routing by content hash, size-limit enforcement, and the router-wide
// snapshot gate.
type Router struct {
	shards        []*engine.LruTtlMap
	mask          uint32
	maxKeyBytes   int64
	maxValueBytes int64

	// gate separates shared point operations from exclusive snapshot
	// capture/restore. Lock order throughout this package is gate, then
	// (implicitly, inside engine) the target shard's own mutex - never the
	// reverse, and no operation ever holds two shard locks at once.
	gate sync.RWMutex
}

// NewRouter validates cfg and constructs a Router with cfg.ShardCount fresh
// shards, each with capacity cfg.CapacityPerShard.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.ShardCount <= 0 || cfg.ShardCount&(cfg.ShardCount-1) != 0 {
		return nil, ErrInvalidArgument("shard count must be a positive power of two")
	}
	if cfg.CapacityPerShard < 1 {
		return nil, ErrInvalidArgument("capacity per shard must be >= 1")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}

	shards := make([]*engine.LruTtlMap, cfg.ShardCount)
	for i := range shards {
		shards[i] = engine.New(cfg.CapacityPerShard, clock)
	}

	return &Router{
		shards:        shards,
		mask:          uint32(cfg.ShardCount - 1),
		maxKeyBytes:   cfg.MaxKeyBytes,
		maxValueBytes: cfg.MaxValueBytes,
	}, nil
}

// ShardCount returns the fixed number of shards.
func (r *Router) ShardCount() int { return len(r.shards) }

// CapacityPerShard returns the fixed per-shard capacity.
func (r *Router) CapacityPerShard() int {
	if len(r.shards) == 0 {
		return 0
	}
	return r.shards[0].Capacity()
}

// shardIndex computes a 32-bit FNV-1a hash of key, spreads it with an XOR
// against its own right shift by 16, and masks to the shard count. It is a
// pure function of key and S only: no per-instance seed, so routing is
// stable across restarts and across Router instances of the same shape.
func (r *Router) shardIndex(key string) int {
	if len(key) == 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	hash := h.Sum32()
	hash ^= hash >> 16
	return int(hash & r.mask)
}

func (r *Router) shardFor(key string) *engine.LruTtlMap {
	return r.shards[r.shardIndex(key)]
}

// Insert enforces maxKeyBytes/maxValueBytes (when not Unbounded) and
// delegates to the owning shard under the snapshot gate's shared mode.
func (r *Router) Insert(key string, value []byte) error {
	if r.maxKeyBytes != Unbounded && int64(len(key)) > r.maxKeyBytes {
		return ErrTooLarge("key", int64(len(key)), r.maxKeyBytes)
	}
	if r.maxValueBytes != Unbounded && int64(len(value)) > r.maxValueBytes {
		return ErrTooLarge("value", int64(len(value)), r.maxValueBytes)
	}

	r.gate.RLock()
	defer r.gate.RUnlock()

	r.shardFor(key).Insert(key, value)
	return nil
}

// Get routes to the owning shard and returns its current value.
func (r *Router) Get(key string) ([]byte, bool) {
	r.gate.RLock()
	defer r.gate.RUnlock()
	return r.shardFor(key).Get(key)
}

// Delete routes to the owning shard and removes key if present.
func (r *Router) Delete(key string) bool {
	r.gate.RLock()
	defer r.gate.RUnlock()
	return r.shardFor(key).Delete(key)
}

// Expire routes to the owning shard and stamps its expiration.
func (r *Router) Expire(key string, ttlMillis int64) (bool, error) {
	r.gate.RLock()
	defer r.gate.RUnlock()

	ok, err := r.shardFor(key).Expire(key, ttlMillis)
	if err != nil {
		if ia, isIA := err.(*engine.ErrInvalidArgument); isIA {
			return false, ErrInvalidArgument(ia.Reason)
		}
		return false, ErrInternal(err.Error())
	}
	return ok, nil
}

// ContainsKey routes to the owning shard.
func (r *Router) ContainsKey(key string) bool {
	r.gate.RLock()
	defer r.gate.RUnlock()
	return r.shardFor(key).ContainsKey(key)
}

// Size sums the live entry count across all shards.
func (r *Router) Size() int {
	r.gate.RLock()
	defer r.gate.RUnlock()

	total := 0
	for _, s := range r.shards {
		total += s.Size()
	}
	return total
}

// Clear drops every entry in every shard.
func (r *Router) Clear() {
	r.gate.RLock()
	defer r.gate.RUnlock()

	for _, s := range r.shards {
		s.Clear()
	}
}

// SweepAll invokes SweepExpired on every shard under the gate's shared
// mode, so a sweep pass never excludes capture/restore from the lock order
// but also never blocks other point operations against it. Returns the
// total number of entries removed.
func (r *Router) SweepAll() int {
	r.gate.RLock()
	defer r.gate.RUnlock()

	total := 0
	for _, s := range r.shards {
		total += s.SweepExpired()
	}
	return total
}

// Stats aggregates per-shard StatsCounters into a single Snapshot.
func (r *Router) Stats() stats.Snapshot {
	r.gate.RLock()
	defer r.gate.RUnlock()

	var total stats.Snapshot
	for _, s := range r.shards {
		total = total.Add(s.Counters().Snapshot())
	}
	return total
}

// ValueSizeMean returns the store-wide mean of inserted value sizes,
// weighted by each shard's sample count rather than averaging per-shard
// means unweighted. Returns 0 if no values have been observed.
func (r *Router) ValueSizeMean() float64 {
	r.gate.RLock()
	defer r.gate.RUnlock()

	var sum, count int64
	for _, s := range r.shards {
		shardSum, shardCount := s.Counters().ValueSizeSumCount()
		sum += shardSum
		count += shardCount
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// Image is a full, in-memory capture of the store's content, ordered by
// shard index, as produced by CaptureSnapshot and consumed by
// RestoreSnapshot and the snapshot codec.
type Image struct {
	CaptureTimestampMillis int64
	ShardCount             int
	CapacityPerShard       int
	Shards                 [][]engine.SnapshotEntry
}

// CaptureSnapshot acquires the gate exclusively, drains every shard into an
// in-memory Image, and releases the gate. No point operation can observably
// overlap the drain.
func (r *Router) CaptureSnapshot(nowMillis int64) *Image {
	r.gate.Lock()
	defer r.gate.Unlock()

	img := &Image{
		CaptureTimestampMillis: nowMillis,
		ShardCount:             len(r.shards),
		CapacityPerShard:       r.CapacityPerShard(),
		Shards:                 make([][]engine.SnapshotEntry, len(r.shards)),
	}
	for i, s := range r.shards {
		img.Shards[i] = s.DrainForSnapshot()
	}
	return img
}

// RestoreSnapshot fails with ShardCountMismatch if image.ShardCount differs
// from the router's shard count. Otherwise each shard's content is replaced
// by loading the corresponding image entries.
func (r *Router) RestoreSnapshot(image *Image) error {
	if image.ShardCount != len(r.shards) {
		return ErrShardCountMismatch(image.ShardCount, len(r.shards))
	}

	r.gate.Lock()
	defer r.gate.Unlock()

	for i, s := range r.shards {
		s.LoadFromSnapshot(image.Shards[i])
	}
	return nil
}
