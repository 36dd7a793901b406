package configs

import (
	"fmt"
	"os"
	"time"
)

// DefaultSessionMinutes is the session lifetime used when the config sets none.
const DefaultSessionMinutes = 30

type UserConfig struct {
	Vault   VaultConfig   `toml:"vault"`
	Session SessionConfig `toml:"session"`
}

type VaultConfig struct {
	Path           string `toml:"path,omitempty"`
	SessionMinutes int    `toml:"session_minutes,omitempty"`
}

// SessionConfig holds the token of the last login so later commands can
// skip the password prompt.
type SessionConfig struct {
	Token     string    `toml:"token,omitempty"`
	ExpiresAt time.Time `toml:"expires_at,omitempty"`
}

var GlobalUserConfig *UserConfig

// LoadUserConfig loads the user configuration from the config file.
// A missing file yields an empty config.
func LoadUserConfig() (*UserConfig, error) {
	config := &UserConfig{}

	if _, err := os.Stat(KestrelSettings.ConfigPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(KestrelSettings.ConfigPath, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	return config, nil
}

// SaveUserConfig saves the user configuration to the config file.
func SaveUserConfig(config *UserConfig) error {
	if err := SaveTOML(KestrelSettings.ConfigPath, config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}

	return nil
}

// SessionLifetime returns the configured session lifetime in minutes.
func (c *UserConfig) SessionLifetime() int {
	if c.Vault.SessionMinutes > 0 {
		return c.Vault.SessionMinutes
	}
	return DefaultSessionMinutes
}

// SaveSession records a session token and its expiry in the user config.
func SaveSession(token string, expiresAt time.Time) error {
	config, err := LoadUserConfig()
	if err != nil {
		return err
	}

	config.Session = SessionConfig{Token: token, ExpiresAt: expiresAt.UTC()}
	return SaveUserConfig(config)
}

// ClearSession removes any stored session token. It is a no-op when none is stored.
func ClearSession() error {
	config, err := LoadUserConfig()
	if err != nil {
		return err
	}
	if config.Session.Token == "" {
		return nil
	}

	config.Session = SessionConfig{}
	return SaveUserConfig(config)
}

// ResolveVaultPath picks the vault file: KESTREL_VAULT first, then the user
// config, then the default under the XDG data directory.
func ResolveVaultPath() (string, error) {
	if path := os.Getenv(VaultEnvVar); path != "" {
		return path, nil
	}

	config, err := LoadUserConfig()
	if err != nil {
		return "", err
	}
	if config.Vault.Path != "" {
		return config.Vault.Path, nil
	}

	return KestrelSettings.DefaultVaultPath, nil
}
