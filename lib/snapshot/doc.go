// Package snapshot implements the self-describing binary snapshot format
// and the manager that drives atomic capture-to-disk, load, periodic
// scheduling, and retention on top of lib/store.Router.
//
// The wire format is a fixed header followed by repeated entries, laid out
// field by field in codec.go; Encode/Decode must round-trip a store.Image
// byte-for-byte. Files are written to a ".tmp" sibling first and renamed
// into place so a reader of "snapshot-*.bin" always observes either the
// complete prior file or the complete new one, never a partial write.
package snapshot
