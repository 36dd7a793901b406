// Package utils provides shared helpers for the kestrel CLI.
//
// # Names
//
// Project and detail names share one format, checked by IsValidName.
// SanitizeName and GenerateProjectName derive a valid default project name
// from the current directory.
//
// # System Utilities
//
//   - GetUsername: returns the current system username, recorded in the audit log
//
// # I/O Utilities
//
//   - ReadStdin: reads piped detail values
//   - ReadLine: reads a password passed with --password-stdin
//
// # Terminal Utilities
//
//   - ReadPassword: prompts for the administrator password without echo
//   - ReadPasswordFromTTY: prompts on /dev/tty when stdin carries other data
//   - IsTerminal: checks whether stdin is a terminal
//
// # String Utilities
//
//   - EnvName: folds a project name into environment variable form
//   - FormatNames: formats a list of names for human-readable output
package utils
