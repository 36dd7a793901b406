package vault

import (
	"context"
	"fmt"
	"time"

	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/store"
	"github.com/kestrel-run/kestrel/internal/utils"
)

// Vault is an administrative handle on a vault file.
type Vault struct {
	db  *store.DB
	now func() time.Time
}

// Option configures a Vault.
type Option func(*Vault)

// WithClock replaces the wall clock used for session expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) {
		v.now = now
	}
}

// Open opens (creating if needed) the vault file at path for administration.
func Open(ctx context.Context, path string, opts ...Option) (*Vault, error) {
	db, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	v := &Vault{db: db, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Path returns the absolute path of the vault file.
func (v *Vault) Path() string {
	return v.db.Path()
}

// Close releases the underlying file handle.
func (v *Vault) Close() error {
	return v.db.Close()
}

func validateName(kind, name string) error {
	if !utils.IsValidName(name) {
		return fmt.Errorf("%w: %s name %q", kerrors.ErrInvalidName, kind, name)
	}
	return nil
}
