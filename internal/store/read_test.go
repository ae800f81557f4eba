package store

import (
	"context"
	"testing"

	"github.com/roach88/sorsync/internal/ir"
)

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"003", "001", "002"} {
		e := createTestEntity(t, id, "SIMS", ir.Object{"sfuid": ir.String(id)})
		if _, err := s.WriteInsert(ctx, e); err != nil {
			t.Fatalf("WriteInsert(%s) failed: %v", id, err)
		}
	}
	other := createTestEntity(t, "001", "HAP", ir.Object{"sfuid": ir.String("001")})
	if _, err := s.WriteInsert(ctx, other); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteDeactivate(ctx, "002", "SIMS"); err != nil {
		t.Fatal(err)
	}
}

func TestLoadActive(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)

	rows, err := s.LoadActive(context.Background(), "SIMS")
	if err != nil {
		t.Fatalf("LoadActive() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("LoadActive() returned %d rows, want 2", len(rows))
	}
	if rows[0].NaturalID != "001" || rows[1].NaturalID != "003" {
		t.Errorf("LoadActive() = %+v, want 001 then 003", rows)
	}
	want := ir.MustFingerprint(ir.Object{"sfuid": ir.String("001")})
	if rows[0].Fingerprint != want {
		t.Errorf("fingerprint = %q, want %q", rows[0].Fingerprint, want)
	}
}

func TestLoadActive_EmptySource(t *testing.T) {
	s := createTestStore(t)

	rows, err := s.LoadActive(context.Background(), "NONE")
	if err != nil {
		t.Fatalf("LoadActive() failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("LoadActive() = %v, want empty", rows)
	}
}

func TestLoadActive_ClosedStore(t *testing.T) {
	s := createTestStore(t)
	s.Close()

	if _, err := s.LoadActive(context.Background(), "SIMS"); err == nil {
		t.Error("LoadActive() on closed store should fail")
	}
}

func TestLookupExisting_IncludesInactive(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)
	ctx := context.Background()

	rec, found, err := s.LookupExisting(ctx, "002", "SIMS")
	if err != nil || !found {
		t.Fatalf("LookupExisting() = %v, %v", found, err)
	}
	if rec.Status != ir.StatusInactive {
		t.Errorf("status = %q, want inactive", rec.Status)
	}

	_, found, err = s.LookupExisting(ctx, "999", "SIMS")
	if err != nil || found {
		t.Errorf("LookupExisting(missing) = %v, %v; want false, nil", found, err)
	}
}

func TestListRecordsAndCountByStatus(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)
	ctx := context.Background()

	records, err := s.ListRecords(ctx, "SIMS")
	if err != nil {
		t.Fatalf("ListRecords() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("ListRecords() = %d records, want 3", len(records))
	}
	for i, want := range []string{"001", "002", "003"} {
		if records[i].NaturalID != want {
			t.Errorf("records[%d] = %q, want %q", i, records[i].NaturalID, want)
		}
	}

	counts, err := s.CountByStatus(ctx, "SIMS")
	if err != nil {
		t.Fatalf("CountByStatus() failed: %v", err)
	}
	if counts[ir.StatusActive] != 2 || counts[ir.StatusInactive] != 1 || counts[ir.StatusDeleted] != 0 {
		t.Errorf("CountByStatus() = %v", counts)
	}
}

func TestReadSourceChangeLog(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)

	log, err := s.ReadSourceChangeLog(context.Background(), "SIMS")
	if err != nil {
		t.Fatalf("ReadSourceChangeLog() failed: %v", err)
	}
	if len(log) != 4 {
		t.Fatalf("entries = %d, want 4", len(log))
	}
	for i := 1; i < len(log); i++ {
		if !log[i].CreatedAt.After(log[i-1].CreatedAt) {
			t.Errorf("entry %d not after entry %d", i, i-1)
		}
	}
}
