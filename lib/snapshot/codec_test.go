package snapshot

import (
	"testing"

	"github.com/emberkv/ember/lib/engine"
	"github.com/emberkv/ember/lib/store"
)

func sampleImage() *store.Image {
	return &store.Image{
		CaptureTimestampMillis: 1700000000000,
		ShardCount:             2,
		CapacityPerShard:       16,
		Shards: [][]engine.SnapshotEntry{
			{
				{Key: "a", Value: []byte("1")},
				{Key: "b", Value: []byte("2"), HasExpiration: true, ExpirationMillis: 1700000060000},
			},
			{
				{Key: "c", Value: []byte("")},
			},
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	image := sampleImage()
	data := Encode(image)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.CaptureTimestampMillis != image.CaptureTimestampMillis {
		t.Errorf("CaptureTimestampMillis = %d; want %d", decoded.CaptureTimestampMillis, image.CaptureTimestampMillis)
	}
	if decoded.ShardCount != image.ShardCount || decoded.CapacityPerShard != image.CapacityPerShard {
		t.Errorf("ShardCount/CapacityPerShard mismatch: got %d/%d want %d/%d",
			decoded.ShardCount, decoded.CapacityPerShard, image.ShardCount, image.CapacityPerShard)
	}
	for i := range image.Shards {
		if len(decoded.Shards[i]) != len(image.Shards[i]) {
			t.Fatalf("shard %d len = %d; want %d", i, len(decoded.Shards[i]), len(image.Shards[i]))
		}
		for j, want := range image.Shards[i] {
			got := decoded.Shards[i][j]
			if got.Key != want.Key || string(got.Value) != string(want.Value) ||
				got.HasExpiration != want.HasExpiration || got.ExpirationMillis != want.ExpirationMillis {
				t.Errorf("shard %d entry %d = %+v; want %+v", i, j, got, want)
			}
		}
	}
}

func TestCodecRejectsBadMagic(t *testing.T) {
	data := Encode(sampleImage())
	data[0] ^= 0xFF
	if _, err := Decode(data); err == nil {
		t.Errorf("Decode should reject corrupted magic")
	}
}

func TestCodecRejectsUnknownVersion(t *testing.T) {
	data := Encode(sampleImage())
	data[4] = 0x7F
	_, err := Decode(data)
	storeErr, ok := err.(*store.Error)
	if !ok || storeErr.Code != store.CodeIncompatibleVersion {
		t.Fatalf("Decode() error = %v; want IncompatibleVersion", err)
	}
}

func TestCodecDetectsCRCMismatch(t *testing.T) {
	data := Encode(sampleImage())
	data[len(data)-1] ^= 0xFF
	if _, err := Decode(data); err == nil {
		t.Errorf("Decode should reject a corrupted CRC")
	}
}

func TestCodecAcceptsMissingCRC(t *testing.T) {
	data := Encode(sampleImage())
	withoutCRC := data[:len(data)-4]
	if _, err := Decode(withoutCRC); err != nil {
		t.Errorf("Decode should accept files without a trailing CRC: %v", err)
	}
}

func TestCodecEmptyImage(t *testing.T) {
	image := &store.Image{
		CaptureTimestampMillis: 1,
		ShardCount:             1,
		CapacityPerShard:       4,
		Shards:                 [][]engine.SnapshotEntry{{}},
	}
	data := Encode(image)
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Shards[0]) != 0 {
		t.Errorf("expected empty shard, got %d entries", len(decoded.Shards[0]))
	}
}
