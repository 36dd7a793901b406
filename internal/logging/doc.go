// Package logger provides leveled logging for kestrel CLI commands.
//
// Output is prefixed and colored with fatih/color. Verbosity is controlled by
// two flags on the vault command:
//
//   - --verbose: shows info messages
//   - --debug: shows info and debug messages, and logs errors as they are returned
//
// Warnings and errors are always written to stderr.
//
// # Usage
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Opened vault at %s", path)
//	return log.ErrorfAndReturn("failed to rotate %s: %w", name, err)
//
// The vault command builds the logger in its PersistentPreRun. Internal
// packages do not log; they return errors to the command layer.
package logger
