// Package errors provides typed error values for kestrel.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
//   - Authentication: ErrAuthFailed. A single error for wrong passwords,
//     wrong or rotated project keys, expired sessions and tampered rows, so
//     the message never tells an attacker which one happened.
//   - Not found: ErrVaultNotInitialized, ErrProjectNotFound, ErrDetailNotFound.
//     These are wrapped with the name that was looked up.
//   - Validation: ErrInvalidName, ErrMalformedToken, ErrInvalidPassword, ...
//   - Transactional: ErrTxDone. Any other failure inside a transaction is
//     returned unchanged after the rollback.
//
// # Usage
//
//	if err := v.RemoveDetail(ctx, "botc", "email"); errors.Is(err, kerrors.ErrDetailNotFound) {
//	    // Show user-friendly message
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("%w: %s/%s", kerrors.ErrDetailNotFound, project, key)
package errors
