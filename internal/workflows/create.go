package workflows

import (
	"context"
	"fmt"

	"github.com/kestrel-run/kestrel/internal/audit"
	"github.com/kestrel-run/kestrel/internal/utils"
)

// CreateOptions configures the project create workflow.
type CreateOptions struct {
	VaultOptions

	// ProjectName is the new project's name. If empty, a name is derived from
	// the current directory.
	ProjectName string
}

// CreateResult contains the outcome of a create operation.
type CreateResult struct {
	ProjectName string

	// Token is the project token. It is shown once here and can be exported
	// again later.
	Token string

	Auth *AuthResult
}

// CreateProject generates a project key, stores it wrapped under the master
// key and returns the project token.
//
// Returns ErrProjectExists if the name is taken.
// Returns ErrInvalidName if the name has an unsupported format.
func CreateProject(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
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

	name := opts.ProjectName
	if name == "" {
		projects, err := v.ListProjects(ctx)
		if err != nil {
			return nil, err
		}
		existing := make([]string, 0, len(projects))
		for _, p := range projects {
			existing = append(existing, p.Name)
		}
		name, err = utils.GenerateProjectName(existing)
		if err != nil {
			return nil, fmt.Errorf("generating project name: %w", err)
		}
	}

	token, err := v.CreateProject(ctx, &mk, name)
	if err != nil {
		return nil, err
	}

	record(v, "create", func(e *audit.Entry) { e.Project = name })

	return &CreateResult{ProjectName: name, Token: token, Auth: auth}, nil
}
