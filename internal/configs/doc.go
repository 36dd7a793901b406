// Package configs manages kestrel's user configuration and global settings.
//
// The user config is a TOML file under the OS config directory
// (for example ~/.config/kestrel/config.toml):
//
//	[vault]
//	path = "/home/me/.local/share/kestrel/vault.db"
//	session_minutes = 30
//
//	[session]
//	token = "..."
//	expires_at = 2026-01-01T12:30:00Z
//
// The [session] table is written by "kestrel vault login" and cleared by
// logout, by a password change, and whenever the stored token is rejected.
// The file is written with mode 0600.
//
// # Settings
//
// KestrelSettings is initialized at startup with the default vault path,
// the config file path and the current username. Tests override its fields.
//
// # Vault location
//
// ResolveVaultPath applies the precedence KESTREL_VAULT, then [vault] path,
// then $XDG_DATA_HOME/kestrel/vault.db.
package configs
