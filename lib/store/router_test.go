package store

import (
	"errors"
	"testing"
)

func newTestRouter(t *testing.T, shardCount, capacity int) *Router {
	r, err := NewRouter(Config{
		ShardCount:       shardCount,
		CapacityPerShard: capacity,
		MaxKeyBytes:      Unbounded,
		MaxValueBytes:    Unbounded,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

// S1 Basic set/get/delete.
func TestBasicSetGetDelete(t *testing.T) {
	r := newTestRouter(t, 1, 4)

	if err := r.Insert("a", []byte("1")); err != nil {
		t.Fatalf("Insert(a): %v", err)
	}
	if err := r.Insert("b", []byte("2")); err != nil {
		t.Fatalf("Insert(b): %v", err)
	}

	if v, ok := r.Get("a"); !ok || string(v) != "1" {
		t.Errorf("Get(a) = %q, %v; want 1, true", v, ok)
	}
	if _, ok := r.Get("c"); ok {
		t.Errorf("Get(c) should miss")
	}
	if !r.Delete("b") {
		t.Errorf("Delete(b) should succeed")
	}
	if r.Size() != 1 {
		t.Errorf("Size() = %d; want 1", r.Size())
	}

	snap := r.Stats()
	if snap.Gets != 2 || snap.Hits != 1 || snap.Misses != 1 || snap.Sets != 2 || snap.Deletes != 1 {
		t.Errorf("Stats() = %+v; want gets=2 hits=1 misses=1 sets=2 deletes=1", snap)
	}
}

// S6 Oversize rejection.
func TestOversizeRejection(t *testing.T) {
	r, err := NewRouter(Config{
		ShardCount:       1,
		CapacityPerShard: 4,
		MaxKeyBytes:      Unbounded,
		MaxValueBytes:    8,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	err = r.Insert("k", []byte("123456789"))
	var storeErr *Error
	if !errors.As(err, &storeErr) || storeErr.Code != CodeTooLarge {
		t.Fatalf("Insert() error = %v; want TooLarge", err)
	}
	if storeErr.Kind != "value" || storeErr.Size != 9 || storeErr.Limit != 8 {
		t.Errorf("Error fields = %+v; want kind=value size=9 limit=8", storeErr)
	}

	if _, ok := r.Get("k"); ok {
		t.Errorf("Get(k) should miss: oversized insert must not touch any shard")
	}
	if r.Stats().Sets != 0 {
		t.Errorf("Sets = %d; want 0", r.Stats().Sets)
	}
}

// S5 Shard-count mismatch.
func TestShardCountMismatch(t *testing.T) {
	r4 := newTestRouter(t, 4, 16)
	r4.Insert("x", []byte("1"))
	image := r4.CaptureSnapshot(1000)

	r8 := newTestRouter(t, 8, 16)
	err := r8.RestoreSnapshot(image)
	var storeErr *Error
	if !errors.As(err, &storeErr) || storeErr.Code != CodeShardCountMismatch {
		t.Fatalf("RestoreSnapshot() error = %v; want ShardCountMismatch", err)
	}
	if storeErr.ImageShards != 4 || storeErr.StoreShards != 8 {
		t.Errorf("Error fields = %+v; want imageShards=4 storeShards=8", storeErr)
	}

	// subsequent operations on r8 still succeed
	if err := r8.Insert("y", []byte("2")); err != nil {
		t.Errorf("Insert(y) after failed restore: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := newTestRouter(t, 4, 16)
	for i := 0; i < 40; i++ {
		key := string(rune('a' + i%26))
		r.Insert(key+string(rune(i)), []byte{byte(i)})
	}
	image := r.CaptureSnapshot(5000)

	r2 := newTestRouter(t, 4, 16)
	if err := r2.RestoreSnapshot(image); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if r2.Size() != r.Size() {
		t.Errorf("Size() after restore = %d; want %d", r2.Size(), r.Size())
	}
}

func TestShardIndexDeterministic(t *testing.T) {
	r := newTestRouter(t, 8, 4)
	idx1 := r.shardIndex("hello")
	idx2 := r.shardIndex("hello")
	if idx1 != idx2 {
		t.Errorf("shardIndex not deterministic: %d != %d", idx1, idx2)
	}
	if r.shardIndex("") != 0 {
		t.Errorf("shardIndex(\"\") = %d; want 0", r.shardIndex(""))
	}
	if idx1 < 0 || idx1 >= r.ShardCount() {
		t.Errorf("shardIndex(hello) = %d out of range [0,%d)", idx1, r.ShardCount())
	}
}

func TestInvalidShardCount(t *testing.T) {
	if _, err := NewRouter(Config{ShardCount: 3, CapacityPerShard: 4}); err == nil {
		t.Errorf("NewRouter with non-power-of-two shard count should fail")
	}
}
