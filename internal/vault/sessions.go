package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/store"
)

// Login wraps mk under a fresh session secret and stores it for the given
// number of minutes. It returns the session token and its expiry.
//
// Returns ErrInvalidDuration if minutes is not positive.
func (v *Vault) Login(ctx context.Context, mk *envelope.MasterKey, minutes int) (string, time.Time, error) {
	if minutes <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: got %d minutes", kerrors.ErrInvalidDuration, minutes)
	}

	tok, err := envelope.NewSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	defer tok.Key.Destroy()

	wrapped, err := tok.Key.WrapMasterKey(*mk)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := v.now().Add(time.Duration(minutes) * time.Minute).Truncate(time.Millisecond)
	err = v.db.Atomic(ctx, func(tx *store.Tx) error {
		return store.InsertSession(ctx, tx, store.SessionRecord{
			ID:        tok.ID,
			Wrapped:   wrapped,
			ExpiresAt: expiresAt,
		})
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return tok.String(), expiresAt, nil
}

// ResolveSession returns the master key held by a live session. Unknown,
// expired and tampered sessions and a wrong secret half all fail with
// ErrAuthFailed. Only an expired row is deleted; a token that fails to unwrap
// leaves the stored session for its genuine holder.
//
// Returns ErrMalformedToken if token does not decode to a session token.
func (v *Vault) ResolveSession(ctx context.Context, token string) (envelope.MasterKey, error) {
	tok, err := envelope.ParseSessionToken(token)
	if err != nil {
		return envelope.MasterKey{}, err
	}
	defer tok.Key.Destroy()

	rec, ok, err := store.GetSession(ctx, v.db, tok.ID)
	if err != nil {
		return envelope.MasterKey{}, err
	}
	if !ok {
		return envelope.MasterKey{}, kerrors.ErrAuthFailed
	}

	if !v.now().Before(rec.ExpiresAt) {
		return envelope.MasterKey{}, v.discardSession(ctx, rec)
	}

	mk, err := tok.Key.UnwrapMasterKey(rec.Wrapped)
	if err != nil {
		return envelope.MasterKey{}, err
	}
	return mk, nil
}

// discardSession deletes an expired session and reports ErrAuthFailed.
func (v *Vault) discardSession(ctx context.Context, rec store.SessionRecord) error {
	err := v.db.Atomic(ctx, func(tx *store.Tx) error {
		return store.DeleteSession(ctx, tx, rec.ID)
	})
	if err != nil {
		return fmt.Errorf("%w (removing stale session: %v)", kerrors.ErrAuthFailed, err)
	}
	return kerrors.ErrAuthFailed
}

// SessionStatus reports the expiry of a session using only the id half of the
// token. ok is false when the session is unknown or already expired.
//
// Returns ErrMalformedToken if token does not decode to a session token.
func (v *Vault) SessionStatus(ctx context.Context, token string) (expiresAt time.Time, ok bool, err error) {
	id, err := envelope.ParseSessionID(token)
	if err != nil {
		return time.Time{}, false, err
	}

	expiresAt, ok, err = store.SessionExpiry(ctx, v.db, id)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if !v.now().Before(expiresAt) {
		return expiresAt, false, nil
	}
	return expiresAt, true, nil
}

// Logout deletes a session. Logging out of an unknown session is not an error.
//
// Returns ErrMalformedToken if token does not decode to a session token.
func (v *Vault) Logout(ctx context.Context, token string) error {
	id, err := envelope.ParseSessionID(token)
	if err != nil {
		return err
	}
	return v.db.Atomic(ctx, func(tx *store.Tx) error {
		return store.DeleteSession(ctx, tx, id)
	})
}

// PurgeSessions deletes every expired session and returns how many were removed.
func (v *Vault) PurgeSessions(ctx context.Context) (int64, error) {
	var n int64
	err := v.db.Atomic(ctx, func(tx *store.Tx) error {
		var err error
		n, err = store.DeleteExpiredSessions(ctx, tx, v.now())
		return err
	})
	return n, err
}
