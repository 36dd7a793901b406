package workflows

import (
	"context"

	"github.com/kestrel-run/kestrel/internal/audit"
)

// ExportOptions configures the token export workflow.
type ExportOptions struct {
	VaultOptions

	ProjectName string
}

// ExportResult carries a project's current token.
type ExportResult struct {
	ProjectName string
	Token       string
	Auth        *AuthResult
}

// ExportToken re-derives the token of an existing project from its wrapped key.
//
// Returns ErrProjectNotFound if the project does not exist.
func ExportToken(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	v, err := opts.openExisting(ctx)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	mk, auth, err := Authenticate(ctx, v, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer mk.Destroy()

	token, err := v.ExportToken(ctx, &mk, opts.ProjectName)
	if err != nil {
		return nil, err
	}

	record(v, "export", func(e *audit.Entry) { e.Project = opts.ProjectName })

	return &ExportResult{ProjectName: opts.ProjectName, Token: token, Auth: auth}, nil
}
