package reconcile

import (
	"fmt"

	"github.com/roach88/sorsync/internal/ir"
)

// Outcome is the transition decided for one natural id.
type Outcome int

const (
	// Insert: not in the snapshot. Refined by the writer's point lookup into
	// Insert, Reactivate or NoOpPresentButKnown.
	Insert Outcome = iota + 1

	// Reactivate: a non-active row exists; flip it to active, replace content.
	Reactivate

	// Update: active in the snapshot with a different fingerprint.
	Update

	// Unchanged: active in the snapshot with the same fingerprint. No write.
	Unchanged

	// NoOpPresentButKnown: not in the snapshot, yet the lookup found an active
	// row. Another writer inserted it after the snapshot was taken. No write.
	NoOpPresentButKnown

	// Deactivate: active in the snapshot, absent from the feed.
	Deactivate
)

var outcomeNames = map[Outcome]string{
	Insert:              "insert",
	Reactivate:          "reactivate",
	Update:              "update",
	Unchanged:           "unchanged",
	NoOpPresentButKnown: "known",
	Deactivate:          "deactivate",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Writes reports whether the outcome requires a storage write.
func (o Outcome) Writes() bool {
	switch o {
	case Insert, Reactivate, Update, Deactivate:
		return true
	default:
		return false
	}
}

// Classify decides the outcome of a fingerprinted entity against the
// snapshot. It never touches storage: an id missing from the snapshot is an
// Insert candidate, which the writer disambiguates from a reactivation.
func Classify(naturalID string, e ir.Entity, snap *Snapshot) Outcome {
	fp, ok := snap.Fingerprint(naturalID)
	if !ok {
		return Insert
	}
	if fp == e.Fingerprint {
		return Unchanged
	}
	return Update
}

// Absent returns, in sorted order, every snapshot id missing from present.
// present must hold all feed natural ids, not only those that triggered a
// write, so Unchanged entities are never deactivated.
func Absent(snap *Snapshot, present map[string]ir.Entity) []string {
	var absent []string
	for _, id := range snap.IDs() {
		if _, ok := present[id]; !ok {
			absent = append(absent, id)
		}
	}
	return absent
}
