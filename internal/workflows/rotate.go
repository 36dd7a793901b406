package workflows

import (
	"context"

	"github.com/kestrel-run/kestrel/internal/audit"
)

// RotateOptions configures the project rotate workflow.
type RotateOptions struct {
	VaultOptions

	ProjectName string
}

// RotateResult contains the outcome of a rotate operation.
type RotateResult struct {
	ProjectName string

	// Token replaces every previously issued token for the project.
	Token string

	// DetailCount is the number of details whose data key was re-wrapped.
	DetailCount int

	Auth *AuthResult
}

// RotateProject replaces a project's key. Every detail's project-side data key
// copy is re-wrapped in the same transaction, so either all of them move to
// the new key or none do. Old tokens stop working immediately.
//
// Returns ErrProjectNotFound if the project does not exist.
func RotateProject(ctx context.Context, opts RotateOptions) (*RotateResult, error) {
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

	token, err := v.RotateProject(ctx, &mk, opts.ProjectName)
	if err != nil {
		return nil, err
	}

	refs, err := v.ListDetails(ctx, opts.ProjectName)
	if err != nil {
		return nil, err
	}

	record(v, "rotate", func(e *audit.Entry) {
		e.Project = opts.ProjectName
		e.Count = len(refs)
	})

	return &RotateResult{
		ProjectName: opts.ProjectName,
		Token:       token,
		DetailCount: len(refs),
		Auth:        auth,
	}, nil
}
