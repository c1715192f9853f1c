// Package store provides SQLite-backed storage for rulegen.
//
// It holds two independent record sets:
//   - Builds and artifacts: the incremental build cache used by the output
//     writer. One artifacts row per (out_dir, logical_name) records the hash
//     last written there and the build that wrote it.
//   - Task comments: records behind the task comment service.
//
// # Ordering
//
// Builds are ordered by a per-output-directory seq counter, artifacts by
// logical name (COLLATE BINARY) and comments by id. Timestamps are stored
// but never used for ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
