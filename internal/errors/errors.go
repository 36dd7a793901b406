package errors

import "errors"

// Authentication errors. These never say which of several causes applied.
var (
	// ErrAuthFailed covers a wrong password, a wrong or rotated project key,
	// an unknown or expired session, and tampered ciphertext alike.
	ErrAuthFailed = errors.New("wrong password or corrupted vault")
)

// Not-found errors are wrapped with the offending name by the caller.
var (
	// ErrVaultNotInitialized indicates the vault file has no stored salt yet.
	ErrVaultNotInitialized = errors.New("vault has not been initialized")

	// ErrProjectNotFound indicates the named project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrDetailNotFound indicates the named detail does not exist under the project.
	ErrDetailNotFound = errors.New("detail not found")
)

// Validation errors indicate malformed input.
var (
	// ErrVaultAlreadyInitialized indicates Init was called on an initialized vault.
	ErrVaultAlreadyInitialized = errors.New("vault has already been initialized")

	// ErrProjectExists indicates a project with the requested name already exists.
	ErrProjectExists = errors.New("project already exists")

	// ErrTokenVarTaken indicates a project name whose token environment
	// variable is already used by another project, as with "a-b" and "a_b".
	ErrTokenVarTaken = errors.New("project token variable already in use")

	// ErrInvalidName indicates a project or detail name has an unsupported format.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidPassword indicates the password is unusable (for example, empty).
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidDuration indicates a session lifetime that is not positive.
	ErrInvalidDuration = errors.New("session duration must be positive")

	// ErrMalformedToken indicates a token that does not decode to the expected length.
	ErrMalformedToken = errors.New("malformed token")

	// ErrProjectTokenGiven indicates a project token was supplied where a session
	// token was expected. It always wraps ErrMalformedToken.
	ErrProjectTokenGiven = errors.New("project token supplied where a session token was expected")

	// ErrInvalidDateFormat indicates a --since or --until date that is not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrInvalidMapping indicates a resolve argument that is not of the form context=detail.
	ErrInvalidMapping = errors.New("invalid context=detail mapping")

	// ErrInvalidConfigKey indicates an attempt to use a config entry outside the fixed set.
	ErrInvalidConfigKey = errors.New("invalid config key")
)

// Transaction errors.
var (
	// ErrTxDone indicates a transaction handle was used after its scope closed.
	ErrTxDone = errors.New("transaction already closed")

	// ErrReadOnly indicates a write was attempted through a read-only vault handle.
	ErrReadOnly = errors.New("vault is opened read-only")
)

// CLI state errors.
var (
	// ErrNoSession indicates there is no session token to act on.
	ErrNoSession = errors.New("no active session")

	// ErrTokenNotSet indicates the worker's project token environment variable is empty.
	ErrTokenNotSet = errors.New("project token environment variable is not set")
)
