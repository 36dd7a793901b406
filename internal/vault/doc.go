// Package vault implements the administrative side of the secrets vault.
//
// A single master key protects the vault. It is generated once by Init and
// stored wrapped under a key derived from the administrator password, so
// ChangePassword only rewrites the config rows. Each project has its own key,
// wrapped under the master key; its base64 form is the project token handed to
// worker processes.
//
// Every detail is sealed under a fresh data key, and that data key is stored
// twice: once wrapped under the master key for the administrator, and once
// under the project key for workers. RotateProject re-wraps only the project
// copies, inside a single transaction.
//
// Sessions let an administrator skip the password prompt for a bounded time.
// The token carries a random id used for lookup and a separate secret that
// unwraps the stored master key; the row alone is useless without the token.
//
// Mutating operations run through store.DB.Atomic; any error rolls back the
// whole operation.
package vault
