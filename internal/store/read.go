package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/sorsync/internal/ir"
)

type activeRow struct {
	NaturalID   string `db:"natural_id"`
	Fingerprint string `db:"fingerprint"`
}

type recordRow struct {
	ID          int64     `db:"id"`
	NaturalID   string    `db:"natural_id"`
	Source      string    `db:"source"`
	Status      string    `db:"status"`
	UUID        string    `db:"uuid"`
	LastName    string    `db:"lastname"`
	FirstNames  string    `db:"firstnames"`
	Fingerprint string    `db:"fingerprint"`
	Payload     string    `db:"payload"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r recordRow) record() ir.MirrorRecord {
	return ir.MirrorRecord{
		ID:          r.ID,
		NaturalID:   r.NaturalID,
		Source:      r.Source,
		Status:      ir.Status(r.Status),
		UUID:        r.UUID,
		LastName:    r.LastName,
		FirstNames:  r.FirstNames,
		Fingerprint: r.Fingerprint,
		Payload:     r.Payload,
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
	}
}

type changeLogRow struct {
	ID         int64          `db:"id"`
	NaturalID  string         `db:"natural_id"`
	Source     string         `db:"source"`
	Operation  string         `db:"operation"`
	CreatedAt  time.Time      `db:"created_at"`
	OldPayload sql.NullString `db:"old_payload"`
	NewPayload sql.NullString `db:"new_payload"`
}

func (r changeLogRow) entry() ir.ChangeLogEntry {
	return ir.ChangeLogEntry{
		ID:         r.ID,
		NaturalID:  r.NaturalID,
		Source:     r.Source,
		Operation:  ir.Operation(r.Operation),
		CreatedAt:  utc(r.CreatedAt),
		OldPayload: r.OldPayload.String,
		NewPayload: r.NewPayload.String,
	}
}

const recordColumns = `id, natural_id, source, status, uuid, lastname, firstnames, fingerprint, payload, created_at, updated_at`

// LoadActive returns natural id and fingerprint of every active row of a
// source, ordered by natural id. Inactive and deleted rows are never included.
func (s *Store) LoadActive(ctx context.Context, source string) ([]ir.ActiveRow, error) {
	var rows []activeRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT natural_id, fingerprint
		FROM sor_records
		WHERE source = ? AND status = ?
		ORDER BY natural_id
	`), source, string(ir.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("load active: %w", err)
	}

	out := make([]ir.ActiveRow, len(rows))
	for i, r := range rows {
		out[i] = ir.ActiveRow{NaturalID: r.NaturalID, Fingerprint: r.Fingerprint}
	}
	return out, nil
}

// LookupExisting returns the row for (naturalID, source) in any status.
// found is false when no row exists.
func (s *Store) LookupExisting(ctx context.Context, naturalID, source string) (rec ir.MirrorRecord, found bool, err error) {
	var row recordRow
	err = s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT `+recordColumns+`
		FROM sor_records
		WHERE natural_id = ? AND source = ?
	`), naturalID, source)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.MirrorRecord{}, false, nil
	}
	if err != nil {
		return ir.MirrorRecord{}, false, fmt.Errorf("lookup existing: %w", err)
	}
	return row.record(), true, nil
}

// ListRecords returns every row of a source in any status, ordered by
// natural id. Returns an empty slice (not nil) if the source has no rows.
func (s *Store) ListRecords(ctx context.Context, source string) ([]ir.MirrorRecord, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT `+recordColumns+`
		FROM sor_records
		WHERE source = ?
		ORDER BY natural_id
	`), source)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	out := make([]ir.MirrorRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// CountByStatus returns the number of rows per status for a source.
func (s *Store) CountByStatus(ctx context.Context, source string) (map[ir.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT status, COUNT(*) AS n
		FROM sor_records
		WHERE source = ?
		GROUP BY status
	`), source)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	counts := make(map[ir.Status]int, len(rows))
	for _, r := range rows {
		counts[ir.Status(r.Status)] = r.Count
	}
	return counts, nil
}

// ReadChangeLog returns the audit trail of one natural id in write order.
// Returns an empty slice (not nil) if there are no entries.
func (s *Store) ReadChangeLog(ctx context.Context, naturalID, source string) ([]ir.ChangeLogEntry, error) {
	var rows []changeLogRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, natural_id, source, operation, created_at, old_payload, new_payload
		FROM changelog
		WHERE natural_id = ? AND source = ?
		ORDER BY id ASC
	`), naturalID, source)
	if err != nil {
		return nil, fmt.Errorf("read changelog: %w", err)
	}
	return changeLogEntries(rows), nil
}

// ReadSourceChangeLog returns every audit entry of a source in write order.
func (s *Store) ReadSourceChangeLog(ctx context.Context, source string) ([]ir.ChangeLogEntry, error) {
	var rows []changeLogRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, natural_id, source, operation, created_at, old_payload, new_payload
		FROM changelog
		WHERE source = ?
		ORDER BY id ASC
	`), source)
	if err != nil {
		return nil, fmt.Errorf("read changelog: %w", err)
	}
	return changeLogEntries(rows), nil
}

func changeLogEntries(rows []changeLogRow) []ir.ChangeLogEntry {
	out := make([]ir.ChangeLogEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out
}

// utc normalizes a scanned timestamp. SQLite returns the zone it was written
// with and PostgreSQL the session zone.
func utc(t time.Time) time.Time {
	return t.UTC()
}
