package reconcile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sorsync/internal/feed"
	"github.com/roach88/sorsync/internal/ir"
	"github.com/roach88/sorsync/internal/store"
	"github.com/roach88/sorsync/internal/testutil"
)

const testSource = "SIMS"

var testEpoch = time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"),
		store.WithClock(testutil.NewStepClock(testEpoch, time.Second)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// person is a generic feed record keyed by naturalId.
func person(id, name string) ir.Object {
	return ir.Object{"naturalId": ir.String(id), "name": ir.String(name)}
}

func genericFeed(records ...ir.Object) feed.Feed {
	return feed.Feed{
		Kind:    feed.KindGeneric,
		Source:  testSource,
		IDField: "naturalId",
		Records: records,
	}
}

func entity(t *testing.T, rec ir.Object) ir.Entity {
	t.Helper()
	fp, err := ir.Fingerprint(rec)
	require.NoError(t, err)
	id, _ := rec.Text("naturalId")
	return ir.Entity{NaturalID: id, Source: testSource, Attrs: rec, Fingerprint: fp}
}

func newTestCoordinator(s Storage, opts ...Option) *Coordinator {
	base := []Option{WithIDGenerator(NewFixedGenerator("run-1", "run-2", "run-3", "run-4"))}
	return New(s, append(base, opts...)...)
}

var (
	_ Storage = (*store.Store)(nil)
	_ Storage = (*testutil.FlakyStore)(nil)
)
