package workflows

import (
	"context"
	"errors"
	"os"

	"github.com/kestrel-run/kestrel/internal/configs"
	"github.com/kestrel-run/kestrel/internal/envelope"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/vault"
)

// AuthSource names where the master key came from.
type AuthSource string

const (
	// AuthSessionEnv means a session token from KESTREL_SESSION.
	AuthSessionEnv AuthSource = "session from " + configs.SessionEnvVar

	// AuthSessionConfig means a session token stored by a previous login.
	AuthSessionConfig AuthSource = "stored session"

	// AuthPassword means the administrator password.
	AuthPassword AuthSource = "password"
)

// RejectedSession describes a session token that could not be used.
type RejectedSession struct {
	Source AuthSource
	Reason error

	// Cleared is true when the token was removed from the user config.
	Cleared bool
}

// AuthResult describes how an administrative workflow authenticated.
type AuthResult struct {
	Source   AuthSource
	Rejected []RejectedSession
}

type sessionCandidate struct {
	source AuthSource
	token  string
}

func sessionCandidates() []sessionCandidate {
	var out []sessionCandidate
	if token := os.Getenv(configs.SessionEnvVar); token != "" {
		out = append(out, sessionCandidate{AuthSessionEnv, token})
	}
	if config, err := configs.LoadUserConfig(); err == nil && config.Session.Token != "" {
		out = append(out, sessionCandidate{AuthSessionConfig, config.Session.Token})
	}
	return out
}

// isRejectedToken reports whether err means the token itself is unusable, as
// opposed to the vault being unreadable.
func isRejectedToken(err error) bool {
	return errors.Is(err, kerrors.ErrMalformedToken) || errors.Is(err, kerrors.ErrAuthFailed)
}

// Authenticate returns the vault's master key. It tries a session token from
// KESTREL_SESSION, then the one stored in the user config, and finally asks
// for the password. A stored token that is malformed (for example a project
// token pasted by mistake) or rejected by the vault is cleared from the config.
//
// Returns ErrAuthFailed if the password is wrong.
func Authenticate(ctx context.Context, v *vault.Vault, opts VaultOptions) (envelope.MasterKey, *AuthResult, error) {
	result := &AuthResult{}

	for _, c := range sessionCandidates() {
		mk, err := v.ResolveSession(ctx, c.token)
		if err == nil {
			result.Source = c.source
			return mk, result, nil
		}
		if !isRejectedToken(err) {
			return envelope.MasterKey{}, nil, err
		}

		rejected := RejectedSession{Source: c.source, Reason: err}
		if c.source == AuthSessionConfig {
			rejected.Cleared = configs.ClearSession() == nil
		}
		result.Rejected = append(result.Rejected, rejected)
	}

	password, err := opts.password("Vault password: ")
	if err != nil {
		return envelope.MasterKey{}, nil, err
	}
	mk, err := v.Unlock(ctx, password)
	if err != nil {
		return envelope.MasterKey{}, nil, err
	}
	result.Source = AuthPassword
	return mk, result, nil
}
