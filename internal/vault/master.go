package vault

import (
	"context"
	"fmt"

	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/store"
)

// masterEntry is the password envelope as stored in the config table.
type masterEntry struct {
	salt    []byte
	wrapped envelope.Sealed
	hasKey  bool
}

func readMasterEntry(ctx context.Context, q store.Querier) (masterEntry, bool, error) {
	var e masterEntry

	salt, ok, err := store.GetConfig(ctx, q, store.ConfigSalt)
	if err != nil || !ok {
		return e, false, err
	}
	e.salt = salt

	parts := []struct {
		key store.ConfigKey
		dst *[]byte
	}{
		{store.ConfigMasterNonce, &e.wrapped.Nonce},
		{store.ConfigMasterTag, &e.wrapped.Tag},
		{store.ConfigMasterKey, &e.wrapped.Ciphertext},
	}
	present := 0
	for _, p := range parts {
		b, ok, err := store.GetConfig(ctx, q, p.key)
		if err != nil {
			return e, false, err
		}
		if ok {
			*p.dst = b
			present++
		}
	}

	switch present {
	case 0:
	case len(parts):
		e.hasKey = true
	default:
		// A partial envelope is indistinguishable from corruption.
		return e, true, kerrors.ErrAuthFailed
	}
	return e, true, nil
}

func writeMasterEntry(ctx context.Context, q store.Querier, salt []byte, wrapped envelope.Sealed) error {
	entries := []struct {
		key   store.ConfigKey
		value []byte
	}{
		{store.ConfigSalt, salt},
		{store.ConfigMasterNonce, wrapped.Nonce},
		{store.ConfigMasterTag, wrapped.Tag},
		{store.ConfigMasterKey, wrapped.Ciphertext},
	}
	for _, e := range entries {
		if err := store.PutConfig(ctx, q, e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

func checkPassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password must not be empty", kerrors.ErrInvalidPassword)
	}
	return nil
}

// IsInitialized reports whether the vault has a stored salt.
func (v *Vault) IsInitialized(ctx context.Context) (bool, error) {
	_, ok, err := store.GetConfig(ctx, v.db, store.ConfigSalt)
	return ok, err
}

// Init creates the vault's master key and wraps it under password.
//
// Returns ErrVaultAlreadyInitialized if a salt is already stored and
// ErrInvalidPassword if password is empty.
func (v *Vault) Init(ctx context.Context, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}

	salt, err := envelope.NewSalt()
	if err != nil {
		return err
	}
	mk, err := envelope.NewMasterKey()
	if err != nil {
		return err
	}
	defer mk.Destroy()

	wrapped, err := wrapUnderPassword(password, salt, mk)
	if err != nil {
		return err
	}

	return v.db.Atomic(ctx, func(tx *store.Tx) error {
		_, ok, err := store.GetConfig(ctx, tx, store.ConfigSalt)
		if err != nil {
			return err
		}
		if ok {
			return kerrors.ErrVaultAlreadyInitialized
		}
		return writeMasterEntry(ctx, tx, salt, wrapped)
	})
}

// Unlock derives the key-encryption key from password and returns the
// unwrapped master key. When a salt is stored without a wrapped master key,
// a master key is generated and stored under the password first.
//
// Returns ErrVaultNotInitialized if no salt is stored and ErrAuthFailed if the
// password is wrong or the stored envelope is damaged.
func (v *Vault) Unlock(ctx context.Context, password string) (envelope.MasterKey, error) {
	entry, ok, err := readMasterEntry(ctx, v.db)
	if err != nil {
		return envelope.MasterKey{}, err
	}
	if !ok {
		return envelope.MasterKey{}, kerrors.ErrVaultNotInitialized
	}

	if !entry.hasKey {
		return v.createMasterKey(ctx, password, entry.salt)
	}

	kek, err := envelope.DeriveKEK([]byte(password), entry.salt)
	if err != nil {
		return envelope.MasterKey{}, err
	}
	defer kek.Destroy()

	return kek.UnwrapMasterKey(entry.wrapped)
}

func (v *Vault) createMasterKey(ctx context.Context, password string, salt []byte) (envelope.MasterKey, error) {
	if err := checkPassword(password); err != nil {
		return envelope.MasterKey{}, err
	}

	mk, err := envelope.NewMasterKey()
	if err != nil {
		return envelope.MasterKey{}, err
	}

	err = v.db.Atomic(ctx, func(tx *store.Tx) error {
		entry, _, err := readMasterEntry(ctx, tx)
		if err != nil {
			return err
		}
		if entry.hasKey {
			// Another writer stored a key between our read and this transaction.
			return kerrors.ErrAuthFailed
		}

		wrapped, err := wrapUnderPassword(password, salt, mk)
		if err != nil {
			return err
		}
		return writeMasterEntry(ctx, tx, salt, wrapped)
	})
	if err != nil {
		mk.Destroy()
		return envelope.MasterKey{}, err
	}
	return mk, nil
}

// ChangePassword re-wraps the master key under a new password and a fresh
// salt, then deletes every session. No project or detail row is touched.
//
// Returns ErrAuthFailed if oldPassword is wrong and ErrInvalidPassword if
// newPassword is empty.
func (v *Vault) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	mk, err := v.Unlock(ctx, oldPassword)
	if err != nil {
		return err
	}
	defer mk.Destroy()

	salt, err := envelope.NewSalt()
	if err != nil {
		return err
	}
	wrapped, err := wrapUnderPassword(newPassword, salt, mk)
	if err != nil {
		return err
	}

	return v.db.Atomic(ctx, func(tx *store.Tx) error {
		if err := writeMasterEntry(ctx, tx, salt, wrapped); err != nil {
			return err
		}
		return store.DeleteAllSessions(ctx, tx)
	})
}

func wrapUnderPassword(password string, salt []byte, mk envelope.MasterKey) (envelope.Sealed, error) {
	kek, err := envelope.DeriveKEK([]byte(password), salt)
	if err != nil {
		return envelope.Sealed{}, err
	}
	defer kek.Destroy()

	return kek.WrapMasterKey(mk)
}
