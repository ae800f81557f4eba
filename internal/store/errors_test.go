package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/sorsync/internal/ir"
)

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("value too long for column"), false},
		{"marked", fmt.Errorf("write update: %w", ErrUnavailable), true},
		{"bad conn", fmt.Errorf("write update: %w", driver.ErrBadConn), true},
		{"deadline", fmt.Errorf("begin tx: %w", context.DeadlineExceeded), true},
		{"cancelled", context.Canceled, false},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"pq connection failure", &pq.Error{Code: "08006"}, true},
		{"pq too many connections", &pq.Error{Code: "53300"}, true},
		{"pq unique violation", &pq.Error{Code: "23505"}, false},
		{"pq serialization failure", &pq.Error{Code: "40001"}, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite disk full", sqlite3.Error{Code: sqlite3.ErrFull}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.want {
				t.Errorf("IsUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsUnavailable_ConstraintViolationFromDriver(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := createTestEntity(t, "001", "SIMS", ir.Object{"lastname": ir.String("Smith")})
	if _, err := s.WriteInsert(ctx, e); err != nil {
		t.Fatalf("WriteInsert() failed: %v", err)
	}

	_, err := s.DB().ExecContext(ctx, `INSERT INTO sor_records SELECT * FROM sor_records`)
	if err == nil {
		t.Fatal("duplicate row insert succeeded")
	}
	if IsUnavailable(err) {
		t.Errorf("constraint violation classified as unavailable: %v", err)
	}
}
