// Package store is the SQLite ledger of generation and conformance runs.
//
// The ledger is append-only:
//   - Documents: canonical JSON of every API description used, keyed by
//     fingerprint
//   - Runs: one row per `pigeon generate` or `pigeon test` invocation
//   - Artifacts: the content hash of each file a generate run produced
//   - Messages: channel exchanges observed during a test run
//
// # Ordering
//
// Runs are ordered by seq, a logical clock assigned when the run begins.
// Messages are ordered by the exchange sequence of the messenger that
// observed them. Wall time is never stored, so two ledgers built from the
// same inputs differ only in run IDs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: Enforce referential integrity
package store
