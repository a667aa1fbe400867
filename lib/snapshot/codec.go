package snapshot

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/emberkv/ember/lib/engine"
	"github.com/emberkv/ember/lib/store"
)

// Magic identifies the snapshot format ("MLDB" read as a big-endian u32).
const Magic uint32 = 0x4D4C4442

// Version is the only format version this package writes.
const Version byte = 0x01

const headerSize = 4 + 1 + 8 + 4 + 4 + 4

// Encode serializes image into the big-endian snapshot format (a header of
// magic, version, capture timestamp, shard count, capacity per shard and
// entry count, then one record per entry), appending a trailing CRC32 of
// everything preceding it.
func Encode(image *store.Image) []byte {
	totalEntries := 0
	for _, shard := range image.Shards {
		totalEntries += len(shard)
	}

	buf := new(bytes.Buffer)
	buf.Grow(headerSize + totalEntries*32)

	writeU32(buf, Magic)
	buf.WriteByte(Version)
	writeI64(buf, image.CaptureTimestampMillis)
	writeU32(buf, uint32(image.ShardCount))
	writeU32(buf, uint32(image.CapacityPerShard))
	writeU32(buf, uint32(totalEntries))

	for shardIdx, entries := range image.Shards {
		for _, e := range entries {
			writeU32(buf, uint32(shardIdx))
			writeU32(buf, uint32(len(e.Key)))
			buf.WriteString(e.Key)
			writeU32(buf, uint32(len(e.Value)))
			buf.Write(e.Value)
			if e.HasExpiration {
				buf.WriteByte(1)
				writeI64(buf, e.ExpirationMillis)
			} else {
				buf.WriteByte(0)
			}
		}
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	writeU32(buf, sum)

	return buf.Bytes()
}

// Decode parses data written by Encode. It accepts files with or without
// the trailing CRC32 (readers MUST accept both per the format's v1 rules);
// when present, the CRC is verified and a mismatch fails with DecodeError.
func Decode(data []byte) (*store.Image, error) {
	if len(data) < headerSize {
		return nil, store.ErrDecodeError("snapshot too short for header")
	}

	r := bytes.NewReader(data)

	magic, _ := readU32(r)
	if magic != Magic {
		return nil, store.ErrDecodeError("bad magic")
	}

	versionByte, err := r.ReadByte()
	if err != nil {
		return nil, store.ErrDecodeError("truncated version")
	}
	if versionByte != Version {
		return nil, store.ErrIncompatibleVersion(versionByte)
	}

	ts, _ := readI64(r)
	shardCount32, _ := readU32(r)
	capacityPerShard32, _ := readU32(r)
	totalEntries, _ := readU32(r)

	shardCount := int(shardCount32)
	image := &store.Image{
		CaptureTimestampMillis: ts,
		ShardCount:             shardCount,
		CapacityPerShard:       int(capacityPerShard32),
		Shards:                 make([][]engine.SnapshotEntry, shardCount),
	}

	for i := uint32(0); i < totalEntries; i++ {
		shardIdx32, ok := readU32(r)
		if !ok {
			return nil, store.ErrDecodeError("truncated entry: shardIndex")
		}
		shardIdx := int(shardIdx32)
		if shardIdx < 0 || shardIdx >= shardCount {
			return nil, store.ErrDecodeError("entry shardIndex out of range")
		}

		keyLen, ok := readU32(r)
		if !ok {
			return nil, store.ErrDecodeError("truncated entry: keyLen")
		}
		keyBytes := make([]byte, keyLen)
		if _, err := readFull(r, keyBytes); err != nil {
			return nil, store.ErrDecodeError("truncated entry: key")
		}

		valueLen, ok := readU32(r)
		if !ok {
			return nil, store.ErrDecodeError("truncated entry: valueLen")
		}
		valueBytes := make([]byte, valueLen)
		if _, err := readFull(r, valueBytes); err != nil {
			return nil, store.ErrDecodeError("truncated entry: value")
		}

		hasExpireByte, err := r.ReadByte()
		if err != nil {
			return nil, store.ErrDecodeError("truncated entry: hasExpiration")
		}

		entry := engine.SnapshotEntry{
			Key:   string(keyBytes),
			Value: valueBytes,
		}
		if hasExpireByte != 0 {
			expireAt, ok := readI64(r)
			if !ok {
				return nil, store.ErrDecodeError("truncated entry: expirationMillis")
			}
			entry.HasExpiration = true
			entry.ExpirationMillis = expireAt
		}

		image.Shards[shardIdx] = append(image.Shards[shardIdx], entry)
	}

	consumed := len(data) - r.Len()
	remaining := r.Len()
	switch remaining {
	case 0:
		// no CRC present; accepted per v1 rules
	case 4:
		wantCRC, _ := readU32(r)
		gotCRC := crc32.ChecksumIEEE(data[:consumed])
		if wantCRC != gotCRC {
			return nil, store.ErrDecodeError("CRC32 mismatch")
		}
	default:
		return nil, store.ErrDecodeError("unexpected trailing bytes")
	}

	return image, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeI64(buf *bytes.Buffer, v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	buf.Write(tmp[:])
}

func readU32(r *bytes.Reader) (uint32, bool) {
	var tmp [4]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(tmp[:]), true
}

func readI64(r *bytes.Reader) (int64, bool) {
	var tmp [8]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(tmp[:])), true
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	return io.ReadFull(r, buf)
}
