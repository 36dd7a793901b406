package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	kerrors "github.com/kestrel-run/kestrel/internal/errors"
)

// Tx is a transaction scope handed to an Atomic or Savepoint callback. It is
// valid only until the callback returns; any later use fails with ErrTxDone.
type Tx struct {
	tx    *sql.Tx
	depth int
	done  bool
}

// atomicSavepoint wraps the body of every Atomic call.
const atomicSavepoint = "kestrel_atomic"

// Atomic runs fn inside a single write transaction: BEGIN, a savepoint, fn,
// then RELEASE and COMMIT. When fn returns an error or panics, every write it
// made is rolled back and the vault is left exactly as it was; the original
// error (or panic) reaches the caller.
//
// fn runs synchronously on the calling goroutine. It must not hand the *Tx to
// another goroutine or keep it past its return.
func (db *DB) Atomic(ctx context.Context, fn func(tx *Tx) error) (err error) {
	if db.readOnly {
		return kerrors.ErrReadOnly
	}

	sqlTx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx, "SAVEPOINT "+atomicSavepoint); err != nil {
		_ = sqlTx.Rollback()
		return fmt.Errorf("opening savepoint: %w", err)
	}

	tx := &Tx{tx: sqlTx}
	defer func() {
		tx.done = true
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		var rbErrs []error
		if _, rbErr := sqlTx.ExecContext(context.WithoutCancel(ctx), "ROLLBACK TO "+atomicSavepoint); rbErr != nil {
			rbErrs = append(rbErrs, fmt.Errorf("rolling back savepoint: %w", rbErr))
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			rbErrs = append(rbErrs, fmt.Errorf("rolling back: %w", rbErr))
		}
		if len(rbErrs) == 0 {
			return err
		}
		return errors.Join(append([]error{err}, rbErrs...)...)
	}

	if _, err := sqlTx.ExecContext(ctx, "RELEASE "+atomicSavepoint); err != nil {
		_ = sqlTx.Rollback()
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Savepoint runs fn inside a named savepoint nested in t. An error from fn
// rolls back to the savepoint and is returned; the enclosing transaction
// stays usable and decides for itself whether to continue.
func (t *Tx) Savepoint(ctx context.Context, fn func(tx *Tx) error) error {
	if t.done {
		return kerrors.ErrTxDone
	}

	name := fmt.Sprintf("sp_%d", t.depth+1)
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("opening savepoint: %w", err)
	}

	inner := &Tx{tx: t.tx, depth: t.depth + 1}
	t.done = true
	defer func() {
		inner.done = true
		t.done = false
	}()

	if err := fn(inner); err != nil {
		var rbErrs []error
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO "+name); rbErr != nil {
			rbErrs = append(rbErrs, fmt.Errorf("rolling back savepoint: %w", rbErr))
		}
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE "+name); relErr != nil {
			rbErrs = append(rbErrs, fmt.Errorf("releasing savepoint: %w", relErr))
		}
		if len(rbErrs) == 0 {
			return err
		}
		return errors.Join(append([]error{err}, rbErrs...)...)
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	return nil
}

// Exec runs a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if t.done {
		return nil, kerrors.ErrTxDone
	}
	return t.tx.ExecContext(ctx, query, args...)
}

// Query runs a query inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if t.done {
		return nil, kerrors.ErrTxDone
	}
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row query inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if t.done {
		return &Row{err: kerrors.ErrTxDone}
	}
	return &Row{row: t.tx.QueryRowContext(ctx, query, args...)}
}
