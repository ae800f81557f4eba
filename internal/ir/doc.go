// Package ir holds the data model shared by every other sorsync package:
// the attribute Value types feeds are decoded into, the canonical JSON
// serialization, entity fingerprints, and the Entity, MirrorRecord and
// ChangeLogEntry records.
//
// ir imports nothing internal, so feed, normalize, store and reconcile can
// all depend on it without cycles.
//
// Design constraints:
//   - no floats anywhere; numbers are int64
//   - canonical JSON (RFC 8785 key order, NFC strings) is the only form that
//     is hashed or stored as a payload
package ir
