// Package store provides the SQLite-backed run ledger.
//
// The ledger is an append-only record of:
//   - Baselines: every snapshot or artifact written in record mode, keyed by
//     the content hash of its payload
//   - Runs: the outcome of every scenario run, with its mismatch messages and
//     the solver environment it ran under
//
// The timestamped files under the snapshot directory remain the source of
// truth for comparisons; the ledger indexes them and keeps run history.
//
// # Ordering
//
// All ordering uses the seq column (insertion order), never timestamps.
// Wall-clock columns are informational.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Baseline IDs are computed by internal/ir (ir.SnapshotID, ir.ArtifactID).
package store
