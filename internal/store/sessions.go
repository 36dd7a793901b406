package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-run/kestrel/internal/envelope"
)

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID        uuid.UUID
	Wrapped   envelope.Sealed // master key wrapped under the session secret
	ExpiresAt time.Time
}

// InsertSession stores a new session.
func InsertSession(ctx context.Context, q Querier, rec SessionRecord) error {
	_, err := q.Exec(ctx,
		`INSERT INTO sessions (id, nonce, tag, wrapped_key, expires_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID[:], rec.Wrapped.Nonce, rec.Wrapped.Tag, blob(rec.Wrapped.Ciphertext),
		rec.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession loads a session by id. ok is false when no such row exists.
func GetSession(ctx context.Context, q Querier, id uuid.UUID) (rec SessionRecord, ok bool, err error) {
	var expires int64
	err = q.QueryRow(ctx,
		`SELECT nonce, tag, wrapped_key, expires_at FROM sessions WHERE id = ?`,
		id[:]).Scan(&rec.Wrapped.Nonce, &rec.Wrapped.Tag, &rec.Wrapped.Ciphertext, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, fmt.Errorf("reading session: %w", err)
	}
	rec.ID = id
	rec.ExpiresAt = time.UnixMilli(expires)
	return rec, true, nil
}

// SessionExpiry reads only the expiry of a session. ok is false when no such
// row exists.
func SessionExpiry(ctx context.Context, q Querier, id uuid.UUID) (expiresAt time.Time, ok bool, err error) {
	var expires int64
	err = q.QueryRow(ctx, `SELECT expires_at FROM sessions WHERE id = ?`, id[:]).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading session: %w", err)
	}
	return time.UnixMilli(expires), true, nil
}

// DeleteSession removes a session. Deleting an unknown id is not an error.
func DeleteSession(ctx context.Context, q Querier, id uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, id[:]); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteAllSessions removes every session.
func DeleteAllSessions(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now and
// returns how many were removed.
func DeleteExpiredSessions(ctx context.Context, q Querier, now time.Time) (int64, error) {
	res, err := q.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting expired sessions: %w", err)
	}
	return n, nil
}
