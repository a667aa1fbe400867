// Package enginetest holds a shared suite of behavioral tests runnable
// against any LruTtlMap-shaped factory, in the spirit of the teacher's
// lib/db/testing package.
package enginetest

import (
	"bytes"
	"testing"

	"github.com/emberkv/ember/lib/engine"
)

// Factory constructs a fresh LruTtlMap of the given capacity for testing.
type Factory func(capacity int) *engine.LruTtlMap

// RunEngineTests runs the full behavioral suite against factory, naming
// subtests "<name>/<case>".
func RunEngineTests(t *testing.T, name string, factory Factory) {
	t.Run(name+"/SetAndGet", func(t *testing.T) { testSetAndGet(t, factory) })
	t.Run(name+"/Delete", func(t *testing.T) { testDelete(t, factory) })
	t.Run(name+"/ContainsKey", func(t *testing.T) { testContainsKey(t, factory) })
	t.Run(name+"/Eviction", func(t *testing.T) { testEviction(t, factory) })
	t.Run(name+"/Overwrite", func(t *testing.T) { testOverwrite(t, factory) })
	t.Run(name+"/Clear", func(t *testing.T) { testClear(t, factory) })
	t.Run(name+"/ExpireInvalidArgument", func(t *testing.T) { testExpireInvalidArgument(t, factory) })
	t.Run(name+"/ExpireAbsentKey", func(t *testing.T) { testExpireAbsentKey(t, factory) })
	t.Run(name+"/SnapshotRoundTrip", func(t *testing.T) { testSnapshotRoundTrip(t, factory) })
}

func testSetAndGet(t *testing.T, factory Factory) {
	m := factory(4)
	m.Insert("a", []byte("1"))
	m.Insert("b", []byte("2"))

	v, ok := m.Get("a")
	if !ok || !bytes.Equal(v, []byte("1")) {
		t.Errorf("Get(a) = %q, %v; want 1, true", v, ok)
	}
	if _, ok := m.Get("c"); ok {
		t.Errorf("Get(c) should miss")
	}

	// returned slice must not alias internal storage in a way that lets the
	// caller corrupt the stored value
	v[0] = 'X'
	v2, _ := m.Get("a")
	if bytes.Equal(v2, []byte("X")) {
		t.Errorf("mutating returned value corrupted stored value")
	}
}

func testDelete(t *testing.T, factory Factory) {
	m := factory(4)
	m.Insert("a", []byte("1"))
	if !m.Delete("a") {
		t.Errorf("Delete(a) = false; want true")
	}
	if m.Delete("a") {
		t.Errorf("second Delete(a) = true; want false")
	}
	if _, ok := m.Get("a"); ok {
		t.Errorf("Get(a) after delete should miss")
	}
}

func testContainsKey(t *testing.T, factory Factory) {
	m := factory(2)
	m.Insert("a", []byte("1"))
	if !m.ContainsKey("a") {
		t.Errorf("ContainsKey(a) = false; want true")
	}
	if m.ContainsKey("b") {
		t.Errorf("ContainsKey(b) = true; want false")
	}
}

func testEviction(t *testing.T, factory Factory) {
	m := factory(3)
	m.Insert("k1", []byte("1"))
	m.Insert("k2", []byte("2"))
	m.Insert("k3", []byte("3"))

	if _, ok := m.Get("k1"); !ok {
		t.Fatalf("Get(k1) should hit before eviction")
	}
	m.Insert("k4", []byte("4"))

	if _, ok := m.Get("k2"); ok {
		t.Errorf("k2 should have been evicted")
	}
	for _, k := range []string{"k1", "k3", "k4"} {
		if _, ok := m.Get(k); !ok {
			t.Errorf("%s should still be present", k)
		}
	}
	if m.Size() != 3 {
		t.Errorf("Size() = %d; want 3", m.Size())
	}
}

func testOverwrite(t *testing.T, factory Factory) {
	m := factory(4)
	m.Insert("a", []byte("1"))
	if _, err := m.Expire("a", 60_000); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	// re-inserting must clear the prior expiration
	m.Insert("a", []byte("2"))
	v, ok := m.Get("a")
	if !ok || !bytes.Equal(v, []byte("2")) {
		t.Errorf("Get(a) = %q, %v; want 2, true", v, ok)
	}
}

func testClear(t *testing.T, factory Factory) {
	m := factory(4)
	m.Insert("a", []byte("1"))
	m.Insert("b", []byte("2"))
	m.Clear()
	if m.Size() != 0 {
		t.Errorf("Size() after Clear = %d; want 0", m.Size())
	}
	if _, ok := m.Get("a"); ok {
		t.Errorf("Get(a) after Clear should miss")
	}
}

func testExpireInvalidArgument(t *testing.T, factory Factory) {
	m := factory(2)
	m.Insert("a", []byte("1"))
	if _, err := m.Expire("a", 0); err == nil {
		t.Errorf("Expire(a, 0) should fail")
	}
	if _, err := m.Expire("a", -5); err == nil {
		t.Errorf("Expire(a, -5) should fail")
	}
}

func testExpireAbsentKey(t *testing.T, factory Factory) {
	m := factory(2)
	ok, err := m.Expire("missing", 1000)
	if err != nil {
		t.Fatalf("Expire(missing): %v", err)
	}
	if ok {
		t.Errorf("Expire(missing) = true; want false")
	}
}

func testSnapshotRoundTrip(t *testing.T, factory Factory) {
	m := factory(4)
	m.Insert("a", []byte("1"))
	m.Insert("b", []byte("2"))
	m.Insert("c", []byte("3"))

	image := m.DrainForSnapshot()
	if len(image) != 3 {
		t.Fatalf("DrainForSnapshot len = %d; want 3", len(image))
	}
	if m.Size() != 3 {
		t.Errorf("Size() after drain = %d; want 3 (drain does not remove live entries)", m.Size())
	}

	m2 := factory(4)
	m2.LoadFromSnapshot(image)
	for _, e := range image {
		v, ok := m2.Get(e.Key)
		if !ok || !bytes.Equal(v, e.Value) {
			t.Errorf("Get(%s) after load = %q, %v; want %q, true", e.Key, v, ok, e.Value)
		}
	}
}
