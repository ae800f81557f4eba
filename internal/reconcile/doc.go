// Package reconcile brings the local mirror of one System-of-Record source in
// line with a full extract of that source.
//
// A run loads a snapshot of the source's active rows, normalizes and
// fingerprints the feed, classifies every entity against the snapshot and
// applies the resulting writes through a bounded, transactional writer. Every
// snapshot id the feed no longer contains is deactivated. Counters reflect
// rows actually affected, never outcomes merely computed.
//
// ARCHITECTURE:
//
// Frozen Snapshot:
// Decisions are made against the snapshot as loaded at the start of the run.
// Mid-run changes by other writers are not re-read; the storage layer's
// status guards turn a lost race into a zero-row write.
//
// Bounded Writer:
// At most MaxConcurrentWrites storage operations are in flight across the
// whole run. Submitters block while the writer is full and are admitted in
// FIFO order. Wait is the drain barrier before reporting.
//
// Failure Isolation:
// A failing write is logged with its natural id and source and counted; it
// never aborts sibling writes. Only a snapshot load failure is fatal, and it
// stops the run before any write is submitted.
//
// Re-running with an unchanged feed produces zero writes.
package reconcile
