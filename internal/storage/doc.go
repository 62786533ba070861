// Package storage persists the household snapshot (chores, roster, channel
// bindings) and an append-only audit trail.
//
// Drivers:
//   - file: one JSON document replaced atomically plus a JSONL audit log
//   - sqlite: normalized tables rewritten inside a single transaction
//   - memory: process-local, for tests and dry runs
package storage
