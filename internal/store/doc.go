// Package store provides SQLite-backed storage for recorded sort runs.
//
// A recording has two parts:
//   - Runs: one row per run with its input, output, delivery counts and
//     the content digest of its trace.
//   - Operations: the trace itself, one row per operation keyed by
//     (run_id, seq).
//
// Ordering uses the logical seq columns only: operations by their
// per-run seq, runs by the store-assigned seq. Writes are idempotent, so
// re-recording the same run is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Operations must belong to a recorded run
package store
