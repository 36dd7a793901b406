package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-run/kestrel/internal/audit"
	"github.com/kestrel-run/kestrel/internal/configs"
	kerrors "github.com/kestrel-run/kestrel/internal/errors"
)

// LoginOptions configures the login workflow.
type LoginOptions struct {
	VaultOptions

	// Minutes is the session lifetime. Zero means the configured default.
	Minutes int

	// NoSave skips storing the token in the user config.
	NoSave bool
}

// LoginResult contains the new session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time

	// Saved is true when the token was stored in the user config.
	Saved bool
}

// Login always checks the password, even when a session is already active, and
// opens a new session for the given number of minutes.
//
// Returns ErrAuthFailed if the password is wrong.
// Returns ErrInvalidDuration if Minutes is negative.
func Login(ctx context.Context, opts LoginOptions) (*LoginResult, error) {
	minutes := opts.Minutes
	if minutes == 0 {
		config, err := configs.LoadUserConfig()
		if err != nil {
			return nil, err
		}
		minutes = config.SessionLifetime()
	}
	if minutes < 0 {
		return nil, fmt.Errorf("%w: %d", kerrors.ErrInvalidDuration, minutes)
	}

	v, err := opts.openExisting(ctx)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	password, err := opts.password("Vault password: ")
	if err != nil {
		return nil, err
	}
	mk, err := v.Unlock(ctx, password)
	if err != nil {
		return nil, err
	}
	defer mk.Destroy()

	token, expiresAt, err := v.Login(ctx, &mk, minutes)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{Token: token, ExpiresAt: expiresAt}
	if !opts.NoSave {
		if err := configs.SaveSession(token, expiresAt); err != nil {
			return nil, fmt.Errorf("saving session: %w", err)
		}
		result.Saved = true
	}

	record(v, "login", func(e *audit.Entry) { e.Minutes = minutes })
	return result, nil
}

// LogoutOptions configures the logout workflow.
type LogoutOptions struct {
	VaultOptions
}

// Logout ends the current session: the row is removed from the vault and the
// token is cleared from the user config.
//
// Returns ErrNoSession if there is no session token.
func Logout(ctx context.Context, opts LogoutOptions) error {
	token, source := currentSessionToken()
	if token == "" {
		return kerrors.ErrNoSession
	}

	v, err := opts.openExisting(ctx)
	if err != nil {
		return err
	}
	defer v.Close()

	if err := v.Logout(ctx, token); err != nil {
		return err
	}
	if source == AuthSessionConfig {
		if err := configs.ClearSession(); err != nil {
			return fmt.Errorf("clearing stored session: %w", err)
		}
	}

	record(v, "logout", nil)
	return nil
}

// ChangePasswordOptions configures the password change workflow.
type ChangePasswordOptions struct {
	VaultOptions

	// NewPassword supplies the replacement password. Password supplies the
	// current one.
	NewPassword PasswordFunc
}

// ChangePassword re-wraps the master key under a new password. Every session
// is ended, so any stored token is cleared too.
//
// Returns ErrAuthFailed if the current password is wrong.
// Returns ErrInvalidPassword if the new password is empty.
func ChangePassword(ctx context.Context, opts ChangePasswordOptions) error {
	v, err := opts.openExisting(ctx)
	if err != nil {
		return err
	}
	defer v.Close()

	oldPassword, err := opts.password("Current vault password: ")
	if err != nil {
		return err
	}
	if opts.NewPassword == nil {
		return fmt.Errorf("%w: no new password available", kerrors.ErrInvalidPassword)
	}
	newPassword, err := opts.NewPassword("New vault password: ")
	if err != nil {
		return err
	}

	if err := v.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return err
	}
	_ = configs.ClearSession()

	record(v, "passwd", nil)
	return nil
}
