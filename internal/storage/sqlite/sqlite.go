// Package sqlite implements the warelog storage interface on SQLite via
// the ncruces/go-sqlite3 driver (wazero-based, CGO-free).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embedded sqlite build

	"github.com/inkops/warelog/internal/storage"
)

// DefaultBusyTimeout is how long a connection waits on a locked database
// before failing. Overridable via WL_LOCK_TIMEOUT.
const DefaultBusyTimeout = 30 * time.Second

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same query methods serve both the storage handle and transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// queries implements the full storage query surface over a dbtx.
type queries struct {
	db dbtx
}

// SQLiteStorage implements storage.Storage.
type SQLiteStorage struct {
	queries
	sqlDB *sql.DB
	path  string
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// sqliteTx binds the query surface to one open transaction.
type sqliteTx struct {
	queries
}

var _ storage.Transaction = (*sqliteTx)(nil)

// New opens (creating if needed) the database at dbPath, applies the
// schema and migrations, and returns the storage handle.
func New(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", connString(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; extra connections only add lock
	// contention for this workload.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStorage{
		queries: queries{db: db},
		sqlDB:   db,
		path:    dbPath,
	}, nil
}

// connString builds the driver connection string. _txlock=immediate makes
// every transaction take the write lock at BEGIN, which is the row-lock
// equivalent the ledger's read-modify-write relies on.
func connString(dbPath string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)&_time_format=sqlite&_txlock=immediate",
		dbPath, busyTimeoutMillis(),
	)
}

func busyTimeoutMillis() int64 {
	if env := os.Getenv("WL_LOCK_TIMEOUT"); env != "" {
		if d, err := time.ParseDuration(env); err == nil && d > 0 {
			return d.Milliseconds()
		}
	}
	return DefaultBusyTimeout.Milliseconds()
}

// RunInTransaction implements storage.Storage. The transaction begins with
// the write lock held (see connString); fn's error or panic rolls back,
// nil commits.
func (s *SQLiteStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	tx := &sqliteTx{queries: queries{db: sqlTx}}
	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Close implements storage.Storage.
func (s *SQLiteStorage) Close() error {
	return s.sqlDB.Close()
}

// Path implements storage.Storage.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// UnderlyingDB implements storage.Storage. Diagnostics only.
func (s *SQLiteStorage) UnderlyingDB() *sql.DB {
	return s.sqlDB
}

// isUniqueConstraintError checks if an error is a UNIQUE constraint
// violation. Used by the numbering retry loops and duplicate detection.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// IsUniqueConstraintError exposes unique-violation detection to the
// domain packages that own retry loops.
func IsUniqueConstraintError(err error) bool {
	return isUniqueConstraintError(err)
}
