package workflows

import (
	"context"

	"github.com/kestrel-run/kestrel/internal/audit"
)

// CleanOptions configures the clean workflow.
type CleanOptions struct {
	VaultOptions
}

// CleanResult contains the outcome of a clean operation.
type CleanResult struct {
	// RemovedCount is the number of expired session rows deleted.
	RemovedCount int64
}

// Clean deletes every expired session row. Expired sessions are already
// unusable; this only reclaims the rows. No authentication is needed since
// nothing is decrypted.
func Clean(ctx context.Context, opts CleanOptions) (*CleanResult, error) {
	v, err := opts.openExisting(ctx)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	n, err := v.PurgeSessions(ctx)
	if err != nil {
		return nil, err
	}

	if n > 0 {
		record(v, "clean", func(e *audit.Entry) { e.Count = int(n) })
	}
	return &CleanResult{RemovedCount: n}, nil
}
