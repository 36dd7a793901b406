package vault

import (
	"context"

	"github.com/kestrel-run/kestrel/internal/envelope"
	"github.com/kestrel-run/kestrel/internal/store"
)

// SetDetail stores value under project/key. Every call draws a new data key,
// seals the value with it and wraps the data key under both the master key and
// the project key. An existing detail is fully replaced.
//
// Returns ErrInvalidName if key is malformed, ErrProjectNotFound if the
// project does not exist and ErrAuthFailed if mk does not unwrap the project key.
func (v *Vault) SetDetail(ctx context.Context, mk *envelope.MasterKey, project, key, value string) error {
	if err := validateName("detail", key); err != nil {
		return err
	}

	dek, err := envelope.NewDataKey()
	if err != nil {
		return err
	}
	defer dek.Destroy()

	sealedValue, err := dek.Seal([]byte(value))
	if err != nil {
		return err
	}
	masterWrapped, err := mk.WrapDataKey(dek)
	if err != nil {
		return err
	}

	return v.db.Atomic(ctx, func(tx *store.Tx) error {
		pk, err := v.projectKey(ctx, tx, mk, project)
		if err != nil {
			return err
		}
		defer pk.Destroy()

		projectWrapped, err := pk.WrapDataKey(dek)
		if err != nil {
			return err
		}

		return store.PutDetail(ctx, tx, store.DetailRecord{
			Project:        project,
			Key:            key,
			Value:          sealedValue,
			MasterWrapped:  masterWrapped,
			ProjectWrapped: projectWrapped,
			UpdatedAt:      v.now(),
		})
	})
}

// GetDetail decrypts a detail through its master-wrapped data key.
//
// Returns ErrDetailNotFound if the detail does not exist and ErrAuthFailed if
// the row fails to decrypt under mk.
func (v *Vault) GetDetail(ctx context.Context, mk *envelope.MasterKey, project, key string) (string, error) {
	rec, err := store.GetDetail(ctx, v.db, project, key)
	if err != nil {
		return "", err
	}

	dek, err := mk.UnwrapDataKey(rec.MasterWrapped)
	if err != nil {
		return "", err
	}
	defer dek.Destroy()

	plaintext, err := dek.Open(rec.Value)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// ListDetails lists detail names sorted by project then key. An empty project
// lists the whole vault; an unknown project yields an empty list.
func (v *Vault) ListDetails(ctx context.Context, project string) ([]store.DetailRef, error) {
	return store.ListDetailRefs(ctx, v.db, project)
}

// RemoveDetail deletes one detail.
//
// Returns ErrDetailNotFound if the detail does not exist.
func (v *Vault) RemoveDetail(ctx context.Context, project, key string) error {
	return v.db.Atomic(ctx, func(tx *store.Tx) error {
		return store.DeleteDetail(ctx, tx, project, key)
	})
}
