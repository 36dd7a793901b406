package workflows

import (
	"context"

	"github.com/kestrel-run/kestrel/internal/audit"
	"github.com/kestrel-run/kestrel/internal/store"
)

// RenameOptions configures the project rename workflow.
type RenameOptions struct {
	VaultOptions

	OldName string
	NewName string
}

// RenameResult contains the outcome of a rename operation.
type RenameResult struct {
	OldName string
	NewName string
	Auth    *AuthResult
}

// RenameProject renames a project and its details. The project key is
// unchanged, so existing tokens keep working under the new name.
//
// Returns ErrProjectNotFound if OldName does not exist.
// Returns ErrProjectExists if NewName is taken.
func RenameProject(ctx context.Context, opts RenameOptions) (*RenameResult, error) {
	v, err := opts.openExisting(ctx)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	mk, auth, err := Authenticate(ctx, v, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	mk.Destroy()

	if err := v.RenameProject(ctx, opts.OldName, opts.NewName); err != nil {
		return nil, err
	}

	record(v, "rename", func(e *audit.Entry) {
		e.Project = opts.OldName
		e.NewProject = opts.NewName
	})

	return &RenameResult{OldName: opts.OldName, NewName: opts.NewName, Auth: auth}, nil
}

// RemoveOptions configures the project remove workflow.
type RemoveOptions struct {
	VaultOptions

	ProjectName string
}

// RemoveResult contains the outcome of a remove operation.
type RemoveResult struct {
	ProjectName string

	// DetailCount is the number of details deleted with the project.
	DetailCount int

	Auth *AuthResult
}

// RemoveProject deletes a project and all of its details.
//
// Returns ErrProjectNotFound if the project does not exist.
func RemoveProject(ctx context.Context, opts RemoveOptions) (*RemoveResult, error) {
	v, err := opts.openExisting(ctx)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	mk, auth, err := Authenticate(ctx, v, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	mk.Destroy()

	refs, err := v.ListDetails(ctx, opts.ProjectName)
	if err != nil {
		return nil, err
	}
	if err := v.RemoveProject(ctx, opts.ProjectName); err != nil {
		return nil, err
	}

	record(v, "remove", func(e *audit.Entry) {
		e.Project = opts.ProjectName
		e.Count = len(refs)
	})

	return &RemoveResult{ProjectName: opts.ProjectName, DetailCount: len(refs), Auth: auth}, nil
}

// ListProjectsOptions configures the project list workflow.
type ListProjectsOptions struct {
	VaultOptions
}

// ListProjectsResult holds every project, ordered by name.
type ListProjectsResult struct {
	Projects []store.ProjectSummary
	Auth     *AuthResult
}

// ListProjects lists projects with their detail counts. Names are not secret
// but listing still requires an unlocked vault.
func ListProjects(ctx context.Context, opts ListProjectsOptions) (*ListProjectsResult, error) {
	v, err := opts.openExisting(ctx)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	mk, auth, err := Authenticate(ctx, v, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	mk.Destroy()

	projects, err := v.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return &ListProjectsResult{Projects: projects, Auth: auth}, nil
}
