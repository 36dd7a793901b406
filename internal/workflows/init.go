package workflows

import (
	"context"
	"fmt"

	"github.com/kestrel-run/kestrel/internal/audit"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	VaultOptions
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// VaultPath is the file the vault was created in.
	VaultPath string

	// AuditPath is where operations on this vault are logged.
	AuditPath string
}

// Init creates the vault file if needed, derives a key from the password and
// stores a freshly generated master key wrapped under it.
//
// Returns ErrVaultAlreadyInitialized if the vault already has a master key.
// Returns ErrInvalidPassword if the password is empty.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	v, err := opts.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	defer v.Close()

	password, err := opts.password("New vault password: ")
	if err != nil {
		return nil, err
	}

	if err := v.Init(ctx, password); err != nil {
		return nil, err
	}

	record(v, "init", nil)

	return &InitResult{
		VaultPath: v.Path(),
		AuditPath: audit.LogPath(v.Path()),
	}, nil
}
