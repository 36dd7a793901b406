package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	kerrors "github.com/kestrel-run/kestrel/internal/errors"
	"github.com/kestrel-run/kestrel/internal/ui"
	"github.com/kestrel-run/kestrel/internal/utils"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// ErrCommandFailed is returned by a command that has already reported its
// failure to the user. Callers should exit non-zero without printing it again.
var ErrCommandFailed = errors.New("command failed")

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if !verbose && !debug {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// vaultOptions builds the options shared by administrative workflows.
// valueOnStdin tells the password prompt that stdin is taken.
func vaultOptions(cmd *cobra.Command, s *spinner.Spinner, valueOnStdin bool) workflows.VaultOptions {
	return workflows.VaultOptions{
		VaultPath: vaultPath,
		Password:  passwordFunc(cmd, s, valueOnStdin),
	}
}

// passwordFunc returns a PasswordFunc for the current flags. With
// --password-stdin each call consumes one line of stdin; otherwise the user
// is prompted on the terminal with the spinner paused.
func passwordFunc(cmd *cobra.Command, s *spinner.Spinner, valueOnStdin bool) workflows.PasswordFunc {
	if passwordStdin {
		var (
			rest   string
			loaded bool
		)
		return func(prompt string) (string, error) {
			if !loaded {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return "", fmt.Errorf("reading password from stdin: %w", err)
				}
				rest, loaded = string(data), true
			}
			line, err := utils.ReadLine(strings.NewReader(rest))
			if err != nil {
				return "", err
			}
			_, rest, _ = strings.Cut(rest, "\n")
			Logger.Debugf("Read password for %q from stdin", strings.TrimSpace(prompt))
			return line, nil
		}
	}

	return func(prompt string) (string, error) {
		s.Stop()
		defer func() {
			if !verbose && !debug {
				s.Restart()
			}
		}()

		var (
			password []byte
			err      error
		)
		if valueOnStdin || !utils.IsTerminal() {
			password, err = utils.ReadPasswordFromTTY(prompt)
		} else {
			password, err = utils.ReadPassword(prompt)
		}
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
}

// confirmedPasswordFunc wraps next so that interactive prompts ask twice and
// require both answers to match.
func confirmedPasswordFunc(next workflows.PasswordFunc) workflows.PasswordFunc {
	if passwordStdin {
		return next
	}
	return func(prompt string) (string, error) {
		first, err := next(prompt)
		if err != nil {
			return "", err
		}
		second, err := next("Confirm " + strings.ToLower(prompt[:1]) + prompt[1:])
		if err != nil {
			return "", err
		}
		if first != second {
			return "", fmt.Errorf("%w: passwords do not match", kerrors.ErrInvalidPassword)
		}
		return first, nil
	}
}

// fail reports err through the spinner's final message.
func fail(s *spinner.Spinner, err error) error {
	Logger.Debugf("Command failed: %v", err)
	s.FinalMSG = formatVaultError(err)
	return ErrCommandFailed
}

// formatVaultError formats a workflow error for display to the user.
func formatVaultError(err error) string {
	cross := ui.Cross.String() + " "
	arrow := "\n" + ui.Arrow.String() + " "

	switch {
	case errors.Is(err, kerrors.ErrAuthFailed):
		return cross + "Wrong password or corrupted vault"

	case errors.Is(err, kerrors.ErrVaultNotInitialized):
		return cross + "The vault has not been initialized" +
			arrow + "Run " + ui.Command.Sprint("kestrel vault init") + " first"

	case errors.Is(err, kerrors.ErrVaultAlreadyInitialized):
		return cross + "The vault has already been initialized" +
			arrow + "Use " + ui.Command.Sprint("kestrel vault passwd") + " to change the password"

	case errors.Is(err, kerrors.ErrProjectTokenGiven):
		return cross + "A project token was given where a session token was expected" +
			arrow + "Run " + ui.Command.Sprint("kestrel vault login") + " to start an admin session"

	case errors.Is(err, kerrors.ErrProjectNotFound):
		return cross + capitalize(err.Error()) +
			arrow + "Run " + ui.Command.Sprint("kestrel vault project list") + " to see existing projects"

	case errors.Is(err, kerrors.ErrTokenVarTaken):
		return cross + capitalize(err.Error()) +
			arrow + "Workers could not tell the two tokens apart; pick a name that differs in letters or digits"

	case errors.Is(err, kerrors.ErrTokenNotSet):
		return cross + capitalize(err.Error()) +
			arrow + "Export the token from " + ui.Command.Sprint("kestrel vault project export <name>")

	case errors.Is(err, kerrors.ErrNoSession):
		return cross + "No active session" +
			arrow + "Run " + ui.Command.Sprint("kestrel vault login") + " to start one"

	default:
		return cross + capitalize(err.Error())
	}
}

// warnRejectedSessions tells the user about session tokens that could not be used.
func warnRejectedSessions(auth *workflows.AuthResult) {
	if auth == nil {
		return
	}
	for _, r := range auth.Rejected {
		msg := fmt.Sprintf("%s could not be used: %v", r.Source, r.Reason)
		if r.Cleared {
			msg += " (removed from the user config)"
		}
		Logger.Warnf("%s", msg)
	}
	if auth.Source != "" {
		Logger.Infof("Authenticated with %s", auth.Source)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
