// Package engine implements the per-shard bounded LRU+TTL map. It provides
// a thread-safe, fixed-capacity map with O(1) least-recently-used eviction
// and inline per-key expiration, and is the lowest-level component of the
// storage engine; lib/store shards the key space across several of these.
//
// The package focuses on:
//   - O(1) insert/get/delete via a hash index into an arena of nodes
//     addressed by stable integer index (lib/engine/internal), avoiding the
//     cyclic-pointer graph a classic head/tail-sentinel list would need
//   - Lazy expiration on read and an explicit sweep for reclaiming entries
//     nobody has touched since they expired
//   - Inline TTL storage: expiration lives on the same node as the value,
//     never in a side map, so there is never a value without its TTL or a
//     TTL without its value
package engine
