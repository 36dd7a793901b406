package vault

import (
	"context"
	"fmt"

	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/store"
	"github.com/kestrel-run/kestrel/internal/utils"
)

// afterRewrap runs inside each detail's savepoint once RotateProject has
// re-wrapped it.
// Tests set it to interrupt a rotation partway through.
var afterRewrap func(tx *store.Tx, project, key string) error

// CreateProject adds a project with a fresh random key and returns its token.
//
// Returns ErrInvalidName if name is malformed, ErrProjectExists if it is taken
// and ErrTokenVarTaken if another project's token variable has the same name.
func (v *Vault) CreateProject(ctx context.Context, mk *envelope.MasterKey, name string) (string, error) {
	if err := validateName("project", name); err != nil {
		return "", err
	}

	pk, err := envelope.NewProjectKey()
	if err != nil {
		return "", err
	}
	defer pk.Destroy()

	wrapped, err := mk.WrapProjectKey(pk)
	if err != nil {
		return "", err
	}

	err = v.db.Atomic(ctx, func(tx *store.Tx) error {
		if err := checkTokenVar(ctx, tx, name, ""); err != nil {
			return err
		}
		return store.InsertProject(ctx, tx, store.ProjectRecord{
			Name:      name,
			Key:       wrapped,
			CreatedAt: v.now(),
		})
	})
	if err != nil {
		return "", err
	}
	return pk.Token(), nil
}

// ExportToken unwraps a project's key and returns its token.
//
// Returns ErrProjectNotFound if the project does not exist and ErrAuthFailed
// if mk does not unwrap its key.
func (v *Vault) ExportToken(ctx context.Context, mk *envelope.MasterKey, name string) (string, error) {
	pk, err := v.projectKey(ctx, v.db, mk, name)
	if err != nil {
		return "", err
	}
	defer pk.Destroy()

	return pk.Token(), nil
}

func (v *Vault) projectKey(ctx context.Context, q store.Querier, mk *envelope.MasterKey, name string) (envelope.ProjectKey, error) {
	rec, err := store.GetProject(ctx, q, name)
	if err != nil {
		return envelope.ProjectKey{}, err
	}
	return mk.UnwrapProjectKey(rec.Key)
}

// RotateProject replaces a project's key and returns the new token. In one
// transaction, every detail's project-wrapped data key is unwrapped under the
// old key and re-wrapped under the new one, each in its own savepoint; then
// the project's own stored key is overwritten. Any failure leaves the vault as it was and the old token
// valid. Master-wrapped copies are not touched.
//
// Returns ErrProjectNotFound if the project does not exist and ErrAuthFailed
// if mk or the old project key fails to unwrap a stored key.
func (v *Vault) RotateProject(ctx context.Context, mk *envelope.MasterKey, name string) (string, error) {
	newKey, err := envelope.NewProjectKey()
	if err != nil {
		return "", err
	}
	defer newKey.Destroy()

	err = v.db.Atomic(ctx, func(tx *store.Tx) error {
		oldKey, err := v.projectKey(ctx, tx, mk, name)
		if err != nil {
			return err
		}
		defer oldKey.Destroy()

		details, err := store.ProjectDetails(ctx, tx, name)
		if err != nil {
			return err
		}

		for _, d := range details {
			err := tx.Savepoint(ctx, func(tx *store.Tx) error {
				if err := rewrapDetail(ctx, tx, &oldKey, &newKey, d); err != nil {
					return err
				}
				if afterRewrap != nil {
					return afterRewrap(tx, d.Project, d.Key)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		wrapped, err := mk.WrapProjectKey(newKey)
		if err != nil {
			return err
		}
		return store.UpdateProjectKey(ctx, tx, name, wrapped)
	})
	if err != nil {
		return "", err
	}
	return newKey.Token(), nil
}

func rewrapDetail(ctx context.Context, tx *store.Tx, oldKey, newKey *envelope.ProjectKey, d store.DetailRecord) error {
	dek, err := oldKey.UnwrapDataKey(d.ProjectWrapped)
	if err != nil {
		return fmt.Errorf("unwrapping %s/%s: %w", d.Project, d.Key, err)
	}
	defer dek.Destroy()

	wrapped, err := newKey.WrapDataKey(dek)
	if err != nil {
		return err
	}
	return store.UpdateProjectWrapped(ctx, tx, d.Project, d.Key, wrapped)
}

// RenameProject changes a project's name. Details follow the new name and no
// ciphertext is rewritten.
//
// Returns ErrInvalidName if newName is malformed, ErrProjectNotFound if
// oldName does not exist, ErrProjectExists if newName is taken and
// ErrTokenVarTaken if newName's token variable belongs to another project.
func (v *Vault) RenameProject(ctx context.Context, oldName, newName string) error {
	if err := validateName("project", newName); err != nil {
		return err
	}
	if oldName == newName {
		_, err := store.GetProject(ctx, v.db, oldName)
		return err
	}

	return v.db.Atomic(ctx, func(tx *store.Tx) error {
		if err := checkTokenVar(ctx, tx, newName, oldName); err != nil {
			return err
		}
		return store.RenameProject(ctx, tx, oldName, newName)
	})
}

// checkTokenVar rejects name when a project other than itself or except
// reads its token from the same environment variable.
func checkTokenVar(ctx context.Context, q store.Querier, name, except string) error {
	projects, err := store.ListProjects(ctx, q)
	if err != nil {
		return err
	}
	want := utils.EnvName(name)
	for _, p := range projects {
		if p.Name == name || p.Name == except {
			continue
		}
		if utils.EnvName(p.Name) == want {
			return fmt.Errorf("%w: %s and %s", kerrors.ErrTokenVarTaken, name, p.Name)
		}
	}
	return nil
}

// RemoveProject deletes a project and every detail under it.
//
// Returns ErrProjectNotFound if the project does not exist.
func (v *Vault) RemoveProject(ctx context.Context, name string) error {
	return v.db.Atomic(ctx, func(tx *store.Tx) error {
		return store.DeleteProject(ctx, tx, name)
	})
}

// ListProjects returns every project sorted by name.
func (v *Vault) ListProjects(ctx context.Context) ([]store.ProjectSummary, error) {
	return store.ListProjects(ctx, v.db)
}
