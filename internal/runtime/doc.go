// Package runtime is the worker-side entry point of the vault.
//
// A worker holds one project token and nothing else. It opens the vault file
// read-only, unwraps each requested detail's data key with the project key and
// decrypts the value. The package has no access to the master key, the
// password envelope or sessions.
package runtime
