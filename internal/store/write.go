package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roach88/sorsync/internal/ir"
)

// WriteInsert adds a new active row for the entity and its insert changelog
// entry. Uses ON CONFLICT(natural_id, source) DO NOTHING: when the row already
// exists the call commits nothing and returns 0.
func (s *Store) WriteInsert(ctx context.Context, e ir.Entity) (int64, error) {
	payload, err := marshalPayload(e.Attrs)
	if err != nil {
		return 0, fmt.Errorf("write insert: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return 0, fmt.Errorf("write insert: generate uuid: %w", err)
	}

	var affected int64
	err = s.transaction(ctx, func(tx *sqlx.Tx) error {
		now := s.stamp.next()
		result, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO sor_records
			(natural_id, source, status, uuid, lastname, firstnames, fingerprint, payload, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (natural_id, source) DO NOTHING
		`),
			e.NaturalID,
			e.Source,
			string(ir.StatusActive),
			id.String(),
			e.LastName(),
			e.FirstNames(),
			e.Fingerprint,
			payload,
			now,
			now,
		)
		if err != nil {
			return err
		}
		if affected, err = result.RowsAffected(); err != nil || affected == 0 {
			return err
		}

		_, err = appendChangeLog(ctx, tx, ir.ChangeLogEntry{
			NaturalID:  e.NaturalID,
			Source:     e.Source,
			Operation:  ir.OpInsert,
			CreatedAt:  now,
			NewPayload: payload,
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("write insert: %w", err)
	}
	return affected, nil
}

// WriteUpdate replaces the content of an active row and logs old and new
// payloads. Status is unchanged. Returns 0 when no active row exists.
func (s *Store) WriteUpdate(ctx context.Context, e ir.Entity) (int64, error) {
	n, err := s.replaceContent(ctx, e, ir.OpUpdate)
	if err != nil {
		return 0, fmt.Errorf("write update: %w", err)
	}
	return n, nil
}

// WriteReactivate flips a non-active row back to active, replacing its
// content. Returns 0 when the row is missing or already active.
func (s *Store) WriteReactivate(ctx context.Context, e ir.Entity) (int64, error) {
	n, err := s.replaceContent(ctx, e, ir.OpReactivate)
	if err != nil {
		return 0, fmt.Errorf("write reactivate: %w", err)
	}
	return n, nil
}

// replaceContent is the shared body of update and reactivate. The status
// guard distinguishes them: update only touches active rows, reactivate only
// rows that are not active.
func (s *Store) replaceContent(ctx context.Context, e ir.Entity, op ir.Operation) (int64, error) {
	payload, err := marshalPayload(e.Attrs)
	if err != nil {
		return 0, err
	}

	guard := `status = ?`
	if op == ir.OpReactivate {
		guard = `status <> ?`
	}

	var affected int64
	err = s.transaction(ctx, func(tx *sqlx.Tx) error {
		old, found, err := currentPayload(ctx, tx, e.NaturalID, e.Source, guard)
		if err != nil || !found {
			return err
		}

		now := s.stamp.next()
		result, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE sor_records
			SET status = ?, fingerprint = ?, payload = ?, lastname = ?, firstnames = ?, updated_at = ?
			WHERE natural_id = ? AND source = ? AND `+guard),
			string(ir.StatusActive),
			e.Fingerprint,
			payload,
			e.LastName(),
			e.FirstNames(),
			now,
			e.NaturalID,
			e.Source,
			string(ir.StatusActive),
		)
		if err != nil {
			return err
		}
		if affected, err = result.RowsAffected(); err != nil || affected == 0 {
			return err
		}

		_, err = appendChangeLog(ctx, tx, ir.ChangeLogEntry{
			NaturalID:  e.NaturalID,
			Source:     e.Source,
			Operation:  op,
			CreatedAt:  now,
			OldPayload: old,
			NewPayload: payload,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// WriteDeactivate marks an active row inactive. Payload and fingerprint are
// left untouched; the changelog entry carries the stored payload as old and
// no new payload. Returns 0 when no active row exists.
func (s *Store) WriteDeactivate(ctx context.Context, naturalID, source string) (int64, error) {
	var affected int64
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		old, found, err := currentPayload(ctx, tx, naturalID, source, `status = ?`)
		if err != nil || !found {
			return err
		}

		now := s.stamp.next()
		result, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE sor_records
			SET status = ?, updated_at = ?
			WHERE natural_id = ? AND source = ? AND status = ?
		`),
			string(ir.StatusInactive),
			now,
			naturalID,
			source,
			string(ir.StatusActive),
		)
		if err != nil {
			return err
		}
		if affected, err = result.RowsAffected(); err != nil || affected == 0 {
			return err
		}

		_, err = appendChangeLog(ctx, tx, ir.ChangeLogEntry{
			NaturalID:  naturalID,
			Source:     source,
			Operation:  ir.OpDeactivate,
			CreatedAt:  now,
			OldPayload: old,
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("write deactivate: %w", err)
	}
	return affected, nil
}

// currentPayload reads the stored payload of the row matching the status
// guard, which must compare against the active status.
func currentPayload(ctx context.Context, tx *sqlx.Tx, naturalID, source, guard string) (string, bool, error) {
	var payload string
	err := tx.GetContext(ctx, &payload, tx.Rebind(`
		SELECT payload FROM sor_records
		WHERE natural_id = ? AND source = ? AND `+guard),
		naturalID, source, string(ir.StatusActive),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read current payload: %w", err)
	}
	return payload, true, nil
}

// AppendChangeLog writes one audit entry on its own, for flows that bypass
// the classifier such as audit imports. A zero CreatedAt is stamped by the
// store. Returns the new entry's id.
func (s *Store) AppendChangeLog(ctx context.Context, entry ir.ChangeLogEntry) (int64, error) {
	if entry.NaturalID == "" || entry.Source == "" {
		return 0, fmt.Errorf("append changelog: natural_id and source are required")
	}
	if entry.Operation == "" {
		entry.Operation = ir.OpImport
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.stamp.next()
	}

	var id int64
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = appendChangeLog(ctx, tx, entry)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("append changelog: %w", err)
	}
	return id, nil
}

func appendChangeLog(ctx context.Context, tx *sqlx.Tx, entry ir.ChangeLogEntry) (int64, error) {
	var id int64
	err := tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO changelog
		(natural_id, source, operation, created_at, old_payload, new_payload)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		entry.NaturalID,
		entry.Source,
		string(entry.Operation),
		entry.CreatedAt.UTC(),
		nullString(entry.OldPayload),
		nullString(entry.NewPayload),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert changelog: %w", err)
	}
	return id, nil
}
