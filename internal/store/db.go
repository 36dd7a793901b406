package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/kestrel-run/kestrel/internal/errors"

	_ "modernc.org/sqlite"
)

// busyTimeoutMillis bounds how long a connection waits on another process's lock.
const busyTimeoutMillis = 5000

// DB is a handle on the vault file.
type DB struct {
	sql      *sql.DB
	path     string
	readOnly bool
}

// Open opens the vault file for administration, creating it and its schema
// if needed. The handle keeps a single connection and starts every
// transaction with BEGIN IMMEDIATE, so the write lock is held for exactly
// the span of one Atomic call.
func Open(ctx context.Context, path string) (*DB, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving vault path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating vault directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening vault: %w", err)
	}

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := os.Chmod(path, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting vault permissions: %w", err)
	}

	return &DB{sql: db, path: path}, nil
}

// OpenReadOnly opens an existing vault file without write access. It never
// creates the file or the schema.
func OpenReadOnly(ctx context.Context, path string) (*DB, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving vault path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrVaultNotInitialized, path)
		}
		return nil, fmt.Errorf("checking vault file: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening vault: %w", err)
	}

	return &DB{sql: db, path: path, readOnly: true}, nil
}

// dsn builds a file: URI from an absolute path. Pragmas are passed as
// _pragma parameters so the driver applies them to every pooled connection,
// not just the first.
func dsn(path string, readOnly bool) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	if readOnly {
		q.Set("mode", "ro")
	} else {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
		q.Set("_txlock", "immediate")
	}

	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String() + "?" + q.Encode()
}

// Path returns the vault file path.
func (db *DB) Path() string {
	return db.path
}

// Close releases the handle.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Exec runs a statement outside any transaction.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if db.readOnly {
		return nil, kerrors.ErrReadOnly
	}
	return db.sql.ExecContext(ctx, query, args...)
}

// Query runs a query outside any transaction.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.sql.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row query outside any transaction.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *Row {
	return &Row{row: db.sql.QueryRowContext(ctx, query, args...)}
}

// Querier is implemented by *DB and *Tx so row helpers work in and out of a transaction.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *Row
}

// Row wraps *sql.Row so a closed transaction can report ErrTxDone through Scan.
type Row struct {
	row *sql.Row
	err error
}

// Scan copies the columns of the row into dest.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.row.Scan(dest...)
}
