package workflows

import (
	"context"

	"github.com/kestrel-run/kestrel/internal/audit"
	"github.com/kestrel-run/kestrel/internal/store"
)

// DetailOptions names one detail of a project.
type DetailOptions struct {
	VaultOptions

	ProjectName string
	Key         string
}

// SetDetailOptions configures the detail set workflow.
type SetDetailOptions struct {
	DetailOptions

	Value string
}

// DetailResult contains the outcome of a detail operation. Value is only set
// by GetDetail.
type DetailResult struct {
	ProjectName string
	Key         string
	Value       string
	Auth        *AuthResult
}

// SetDetail stores a value under a fresh data key, replacing any previous
// value for the same key.
//
// Returns ErrProjectNotFound if the project does not exist.
// Returns ErrInvalidName if the key has an unsupported format.
func SetDetail(ctx context.Context, opts SetDetailOptions) (*DetailResult, error) {
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

	if err := v.SetDetail(ctx, &mk, opts.ProjectName, opts.Key, opts.Value); err != nil {
		return nil, err
	}

	record(v, "set", func(e *audit.Entry) {
		e.Project = opts.ProjectName
		e.Detail = opts.Key
	})

	return &DetailResult{ProjectName: opts.ProjectName, Key: opts.Key, Auth: auth}, nil
}

// GetDetail decrypts a detail through the master key.
//
// Returns ErrDetailNotFound if the detail does not exist.
func GetDetail(ctx context.Context, opts DetailOptions) (*DetailResult, error) {
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

	value, err := v.GetDetail(ctx, &mk, opts.ProjectName, opts.Key)
	if err != nil {
		return nil, err
	}

	record(v, "get", func(e *audit.Entry) {
		e.Project = opts.ProjectName
		e.Detail = opts.Key
	})

	return &DetailResult{ProjectName: opts.ProjectName, Key: opts.Key, Value: value, Auth: auth}, nil
}

// RemoveDetail deletes a detail.
//
// Returns ErrDetailNotFound if the detail does not exist.
func RemoveDetail(ctx context.Context, opts DetailOptions) (*DetailResult, error) {
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

	if err := v.RemoveDetail(ctx, opts.ProjectName, opts.Key); err != nil {
		return nil, err
	}

	record(v, "unset", func(e *audit.Entry) {
		e.Project = opts.ProjectName
		e.Detail = opts.Key
	})

	return &DetailResult{ProjectName: opts.ProjectName, Key: opts.Key, Auth: auth}, nil
}

// ListDetailsOptions configures the detail list workflow.
type ListDetailsOptions struct {
	VaultOptions

	// ProjectName restricts the listing. Empty lists every project.
	ProjectName string
}

// ListDetailsResult holds detail names, never values.
type ListDetailsResult struct {
	Details []store.DetailRef
	Auth    *AuthResult
}

// ListDetails lists detail keys ordered by project, then key.
func ListDetails(ctx context.Context, opts ListDetailsOptions) (*ListDetailsResult, error) {
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
	return &ListDetailsResult{Details: refs, Auth: auth}, nil
}
