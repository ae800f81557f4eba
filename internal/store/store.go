package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Schema version tracking:
// 1 - sor_records, changelog
const currentSchemaVersion = 1

// DefaultMaxOpenConns bounds the PostgreSQL pool. It must stay above the
// writer's concurrency so point lookups never queue behind transactions.
const DefaultMaxOpenConns = 10

// Store is the mirror and changelog storage.
type Store struct {
	db           *sqlx.DB
	driver       string
	stamp        *stamper
	maxOpenConns int
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used to stamp writes.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.stamp = newStamper(c)
	}
}

// WithMaxOpenConns sets the PostgreSQL connection pool size. SQLite always
// uses a single connection.
func WithMaxOpenConns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// Open connects to the database, applies driver settings and the schema.
// This function is idempotent - safe to call multiple times.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	s := &Store{
		driver:       driver,
		stamp:        newStamper(SystemClock{}),
		maxOpenConns: DefaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	} else {
		db.SetMaxOpenConns(s.maxOpenConns)
		db.SetMaxIdleConns(s.maxOpenConns)
	}

	s.db = db
	if err := s.applySchema(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

// OpenSQLite opens a SQLite database file with default options.
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	return Open(DriverSQLite, path, opts...)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Driver returns the database/sql driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SchemaVersion returns the highest applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return version, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and records the version.
func (s *Store) applySchema(schema string) error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	_, err := s.db.Exec(s.db.Rebind(`
		INSERT INTO schema_migrations (version, applied_at)
		VALUES (?, ?)
		ON CONFLICT (version) DO NOTHING
	`), currentSchemaVersion, s.stamp.next())
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// transaction runs fn in a transaction, committing when it returns nil.
func (s *Store) transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
