package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/sorsync/internal/ir"
	"github.com/roach88/sorsync/internal/testutil"
)

var testEpoch = time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)

// createTestStore creates a new SQLite store in a temp dir with a stepping clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(DriverSQLite, path, WithClock(testutil.NewStepClock(testEpoch, time.Second)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntity builds a fingerprinted entity.
func createTestEntity(t *testing.T, naturalID, source string, attrs ir.Object) ir.Entity {
	t.Helper()
	if attrs == nil {
		attrs = ir.Object{}
	}
	fp, err := ir.Fingerprint(attrs)
	if err != nil {
		t.Fatalf("Fingerprint() failed: %v", err)
	}
	return ir.Entity{NaturalID: naturalID, Source: source, Attrs: attrs, Fingerprint: fp}
}
