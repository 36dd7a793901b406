// Package audit records administrative vault operations.
//
// Every administrative operation (init, login, logout, password change,
// project create/export/rotate/rename/remove, detail set/get/remove, session
// cleanup) and every worker resolve is appended to a JSON Lines file kept
// next to the vault file:
//
//	<vault dir>/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - OS username
//   - Operation name
//   - Project, detail key, new project name or count where relevant
//
// Entries never contain secret values, passwords or tokens.
//
// # Usage
//
//	entry := audit.LogWithUser("rotate")
//	entry.Project = name
//	audit.Log(vaultPath, entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// a read-only worker environment), the operation continues without error.
//
// # Reading Logs
//
// ReadEntries parses the log for "kestrel vault log". Malformed entries are
// silently skipped to handle partial writes.
package audit
