package workflows

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kestrel-run/kestrel/internal/audit"
	"github.com/kestrel-run/kestrel/internal/configs"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/vault"
)

// PasswordFunc returns the administrator password. The prompt describes what
// is being asked for.
type PasswordFunc func(prompt string) (string, error)

// VaultOptions says how a workflow reaches the vault. It is embedded in the
// options of every administrative workflow.
type VaultOptions struct {
	// VaultPath overrides the resolved vault location when set.
	VaultPath string

	// Password supplies the administrator password. Workflows only call it
	// when no session token is usable.
	Password PasswordFunc

	// Now replaces the wall clock. Nil means time.Now.
	Now func() time.Time
}

func (o VaultOptions) path() (string, error) {
	if o.VaultPath != "" {
		return o.VaultPath, nil
	}
	return configs.ResolveVaultPath()
}

func (o VaultOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o VaultOptions) password(prompt string) (string, error) {
	if o.Password == nil {
		return "", fmt.Errorf("%w: no password available", kerrors.ErrInvalidPassword)
	}
	return o.Password(prompt)
}

// open opens the vault file, creating it if needed. Only Init should call it;
// every other workflow uses openExisting.
func (o VaultOptions) open(ctx context.Context) (*vault.Vault, error) {
	path, err := o.path()
	if err != nil {
		return nil, err
	}

	var opts []vault.Option
	if o.Now != nil {
		opts = append(opts, vault.WithClock(o.Now))
	}
	return vault.Open(ctx, path, opts...)
}

// openExisting opens an initialized vault.
//
// Returns ErrVaultNotInitialized if the file is missing or has no master key envelope.
func (o VaultOptions) openExisting(ctx context.Context) (*vault.Vault, error) {
	path, err := o.path()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrVaultNotInitialized, path)
	}

	v, err := o.open(ctx)
	if err != nil {
		return nil, err
	}

	ok, err := v.IsInitialized(ctx)
	if err != nil {
		v.Close()
		return nil, err
	}
	if !ok {
		v.Close()
		return nil, fmt.Errorf("%w: %s", kerrors.ErrVaultNotInitialized, v.Path())
	}
	return v, nil
}

// record appends an audit entry for op next to the vault file.
func record(v *vault.Vault, op string, fill func(*audit.Entry)) {
	entry := audit.LogWithUser(op)
	if fill != nil {
		fill(&entry)
	}
	audit.Log(v.Path(), entry)
}
