// Package store provides the sharded façade over lib/engine: it routes keys
// to shards by content hash, enforces key/value size limits at the
// boundary, aggregates per-shard statistics, and hosts the router-wide
// snapshot gate that lets capture/restore observe a consistent point in
// time without ever taking more than one shard's lock at a time.
//
// The package focuses on:
//   - A fixed, power-of-two shard count with deterministic key routing
//   - A reader-writer gate separate from each shard's own mutex: point
//     operations take it in shared mode, snapshot capture/restore take it
//     in exclusive mode, and lock order is always gate before shard
//   - A structured Error type covering every failure category the store
//     can produce, so handlers never have to parse strings
package store
