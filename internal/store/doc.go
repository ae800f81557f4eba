// Package store persists the local mirror of System-of-Record data.
//
// Two tables make up the store:
//   - sor_records: one row per (natural_id, source), never physically deleted
//   - changelog: append-only audit of every mutation of sor_records
//
// # Write Pairing
//
// Every mutating write (insert, update, reactivate, deactivate) runs in one
// transaction. The row mutation goes first and is guarded by the status the
// caller expects the row to be in; the changelog entry is appended only when
// that mutation affected a row. A write that matched nothing commits nothing
// and reports 0 affected rows, so the mirror and the changelog never diverge.
//
// # Time
//
// created_at and updated_at are stamped by the store, not the database. The
// stamp is strictly increasing within a process at microsecond precision, and
// a write's changelog entry carries the same instant as the row's updated_at.
//
// # Drivers
//
//   - sqlite3: WAL mode, NORMAL synchronous, 5s busy timeout, one connection
//   - postgres: lib/pq, pooled connections, payloads stored as JSONB
//
// Queries are written with ? placeholders and rebound per driver by sqlx.
package store
