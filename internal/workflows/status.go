package workflows

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/kestrel-run/kestrel/internal/configs"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	VaultOptions
}

// StatusResult describes the vault and the session a command would use.
type StatusResult struct {
	VaultPath string

	// Initialized is false when the vault file is missing or has no master key.
	Initialized bool

	// Source is where the session token was found. Empty when there is none.
	Source AuthSource

	// Active is true when the session token is known to the vault and unexpired.
	Active bool

	// ExpiresAt is the session's expiry. Zero unless Active.
	ExpiresAt time.Time

	// Cleared is true when a malformed stored token was removed from the config.
	Cleared bool
}

// Status reports whether the vault is initialized and whether a session token
// from KESTREL_SESSION or the user config is active. It never asks for the
// password.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	path, err := opts.path()
	if err != nil {
		return nil, err
	}
	result := &StatusResult{VaultPath: path}

	v, err := opts.openExisting(ctx)
	if errors.Is(err, kerrors.ErrVaultNotInitialized) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	defer v.Close()
	result.Initialized = true

	token, source := currentSessionToken()
	if token == "" {
		return result, nil
	}
	result.Source = source

	expiresAt, ok, err := v.SessionStatus(ctx, token)
	if errors.Is(err, kerrors.ErrMalformedToken) {
		if source == AuthSessionConfig {
			result.Cleared = configs.ClearSession() == nil
		}
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Active = ok
	if ok {
		result.ExpiresAt = expiresAt
	}
	return result, nil
}

// currentSessionToken returns the token a command would try first.
func currentSessionToken() (string, AuthSource) {
	if token := os.Getenv(configs.SessionEnvVar); token != "" {
		return token, AuthSessionEnv
	}
	config, err := configs.LoadUserConfig()
	if err != nil || config.Session.Token == "" {
		return "", ""
	}
	return config.Session.Token, AuthSessionConfig
}
