package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	kerrors "github.com/kestrel-run/kestrel/internal/errors"
)

// ConfigKey names one of the fixed config entries. The config table is not a
// general key-value store; only the constants below are accepted.
type ConfigKey string

const (
	// ConfigSalt is the scrypt salt for the administrator password.
	ConfigSalt ConfigKey = "salt"

	// ConfigMasterNonce is the nonce of the password-wrapped master key.
	ConfigMasterNonce ConfigKey = "master_nonce"

	// ConfigMasterTag is the tag of the password-wrapped master key.
	ConfigMasterTag ConfigKey = "master_tag"

	// ConfigMasterKey is the ciphertext of the password-wrapped master key.
	ConfigMasterKey ConfigKey = "master_key"
)

// Valid reports whether k is one of the known config entries.
func (k ConfigKey) Valid() bool {
	switch k {
	case ConfigSalt, ConfigMasterNonce, ConfigMasterTag, ConfigMasterKey:
		return true
	}
	return false
}

// GetConfig reads a config entry. ok is false when the entry is absent.
func GetConfig(ctx context.Context, q Querier, k ConfigKey) (value []byte, ok bool, err error) {
	if !k.Valid() {
		return nil, false, fmt.Errorf("%w: %q", kerrors.ErrInvalidConfigKey, string(k))
	}

	err = q.QueryRow(ctx, `SELECT value FROM config WHERE key = ?`, string(k)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading config %s: %w", k, err)
	}
	return value, true, nil
}

// PutConfig inserts or replaces a config entry.
func PutConfig(ctx context.Context, q Querier, k ConfigKey, value []byte) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %q", kerrors.ErrInvalidConfigKey, string(k))
	}

	_, err := q.Exec(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		string(k), value)
	if err != nil {
		return fmt.Errorf("writing config %s: %w", k, err)
	}
	return nil
}
