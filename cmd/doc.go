// Package cmd implements the command-line interface for the ember
// in-memory key-value store. It provides a hierarchical command structure
// with operations for running the server and interacting with it as a
// client.
//
// The package is organized into several subpackages:
//
//   - serve: starts the text-protocol server, its background tasks, and
//     the metrics/health HTTP endpoint.
//   - kv: client commands for key-value operations (set, get, del, expire,
//     ping, stats) plus a small concurrent load generator.
//   - util: shared utilities for command-line processing and configuration
//     (internal use).
//
// See `ember -help` for a list of all commands.
package cmd
