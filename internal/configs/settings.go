package configs

import (
	"log"
	"os"
	"path/filepath"

	"github.com/kestrel-run/kestrel/internal/utils"
)

const (
	// VaultEnvVar overrides the vault file location.
	VaultEnvVar = "KESTREL_VAULT"

	// SessionEnvVar carries an admin session token.
	SessionEnvVar = "KESTREL_SESSION"
)

type Settings struct {
	// DefaultVaultPath is used when neither KESTREL_VAULT nor the user config names a vault.
	DefaultVaultPath string
	ConfigPath       string
	Username         string
}

var KestrelSettings *Settings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")

	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	username, err := utils.GetUsername()
	if err != nil {
		log.Fatalf("error getting username: %s", err)
	}

	KestrelSettings = &Settings{
		DefaultVaultPath: filepath.Join(dataDir, "kestrel", "vault.db"),
		ConfigPath:       filepath.Join(configDir, "kestrel", "config.toml"),
		Username:         username,
	}
}
