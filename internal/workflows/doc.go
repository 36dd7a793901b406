// Package workflows provides high-level orchestration for kestrel commands.
//
// Workflows coordinate the vault, the worker-side resolver, the user config
// and the audit log to implement complete user-facing features. Each workflow
// handles a single command's business logic, independent of CLI concerns like
// flag parsing, spinners, password prompts and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Supplies a PasswordFunc for prompting
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Resolving the vault path (flag, KESTREL_VAULT, config, default)
//   - Authenticating with a session token or the password
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Authentication
//
// Administrative workflows call Authenticate, which tries KESTREL_SESSION,
// then the session stored by "kestrel vault login", and only then asks for
// the password. Tokens that turn out to be unusable are reported in
// AuthResult.Rejected, and a stored one is cleared. Resolve is the exception:
// it runs with a project token and never sees the master key.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.GetDetail(ctx, opts)
//	if errors.Is(err, kerrors.ErrAuthFailed) {
//	    // Show a generic authentication failure
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
package workflows
