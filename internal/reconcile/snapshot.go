package reconcile

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/sorsync/internal/ir"
)

// Snapshot is the frozen index natural id -> fingerprint of one source's
// active rows. It is never mutated after it is built.
type Snapshot struct {
	source string
	index  map[string]string
}

// NewSnapshot indexes rows. A row without a natural id or a natural id listed
// twice means the storage response is malformed.
func NewSnapshot(source string, rows []ir.ActiveRow) (*Snapshot, error) {
	index := make(map[string]string, len(rows))
	for _, r := range rows {
		if r.NaturalID == "" {
			return nil, fmt.Errorf("snapshot for %s: row without natural id", source)
		}
		if _, dup := index[r.NaturalID]; dup {
			return nil, fmt.Errorf("snapshot for %s: natural id %q listed twice", source, r.NaturalID)
		}
		index[r.NaturalID] = r.Fingerprint
	}
	return &Snapshot{source: source, index: index}, nil
}

// LoadSnapshot reads the active rows of source. Any failure is fatal to the run.
func LoadSnapshot(ctx context.Context, s Storage, source string) (*Snapshot, error) {
	rows, err := s.LoadActive(ctx, source)
	if err != nil {
		return nil, NewSnapshotError(source, err)
	}
	snap, err := NewSnapshot(source, rows)
	if err != nil {
		return nil, NewSnapshotError(source, err)
	}
	return snap, nil
}

// Source returns the source the snapshot was loaded for.
func (s *Snapshot) Source() string {
	return s.source
}

// Fingerprint returns the stored fingerprint of an active natural id.
func (s *Snapshot) Fingerprint(naturalID string) (string, bool) {
	fp, ok := s.index[naturalID]
	return fp, ok
}

// Has reports whether naturalID is active in the snapshot.
func (s *Snapshot) Has(naturalID string) bool {
	_, ok := s.index[naturalID]
	return ok
}

// Len returns the number of active rows.
func (s *Snapshot) Len() int {
	return len(s.index)
}

// IDs returns the natural ids in sorted order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
