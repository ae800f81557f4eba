package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrUnavailable marks an error as a backend-health failure rather than a
// problem with the row being written.
var ErrUnavailable = errors.New("database unavailable")

// Postgres error classes that describe the server, not the statement.
var unavailableClasses = []pq.ErrorClass{
	"08", // connection_exception
	"53", // insufficient_resources
	"57", // operator_intervention
	"58", // system_error
}

// SQLite result codes that describe the database file, not the statement.
var unavailableCodes = []sqlite3.ErrNo{
	sqlite3.ErrBusy,
	sqlite3.ErrLocked,
	sqlite3.ErrCantOpen,
	sqlite3.ErrIoErr,
	sqlite3.ErrFull,
}

// IsUnavailable reports whether err means the database itself is unhealthy:
// a dropped or refused connection, a timeout, or a driver error in one of the
// server-side classes. Constraint violations, bad values and serialization
// failures are per-row problems and return false.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		for _, class := range unavailableClasses {
			if pqErr.Code.Class() == class {
				return true
			}
		}
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		for _, code := range unavailableCodes {
			if liteErr.Code == code {
				return true
			}
		}
	}
	return false
}
