package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-run/kestrel/internal/configs"
	"github.com/kestrel-run/kestrel/internal/ui"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	loginMinutes int
	loginNoSave  bool
)

func init() {
	loginCmd.Flags().IntVarP(&loginMinutes, "minutes", "m", 0, "session lifetime in minutes (default from config, or 30)")
	loginCmd.Flags().BoolVar(&loginNoSave, "no-save", false, "print the token without storing it in the user config")
}

// resetLoginCommandState resets the login command's global state for testing.
func resetLoginCommandState() {
	loginMinutes = 0
	loginNoSave = false
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Unlock the vault for a limited time",
	Long: `Checks the password and opens a session so that later commands do not
ask for it again.

The session token is stored in the user config unless --no-save is given.
It is also printed as an export line for use in other shells.

Examples:
  kestrel vault login
  kestrel vault login --minutes 120
  eval "$(kestrel vault login --no-save | tail -n 1)"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting login command")
		spinner, cleanup := startSpinner("Unlocking vault...", verbose)
		defer cleanup()

		result, err := workflows.Login(context.Background(), workflows.LoginOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			Minutes:      loginMinutes,
			NoSave:       loginNoSave,
		})
		if err != nil {
			return fail(spinner, err)
		}

		saved := ""
		if result.Saved {
			saved = " (stored in " + ui.Path.Sprint(configs.KestrelSettings.ConfigPath) + ")"
		}
		spinner.FinalMSG = ui.Check.String() + " Session active until " +
			ui.Expiry.Sprint(result.ExpiresAt.Local().Format(time.Kitchen)) + saved + "\n" +
			fmt.Sprintf("export %s=%s", configs.SessionEnvVar, ui.Token.Sprint(result.Token))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting logout command")
		spinner, cleanup := startSpinner("Ending session...", verbose)
		defer cleanup()

		err := workflows.Logout(context.Background(), workflows.LogoutOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Check.String() + " Session ended"
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the vault password",
	Long: `Re-wraps the master key under a new password. Project keys, tokens and
details are unchanged. Every session is ended.

With --password-stdin the first line of stdin is the current password and
the second line is the new one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting passwd command")
		spinner, cleanup := startSpinner("Changing password...", verbose)
		defer cleanup()

		opts := vaultOptions(cmd, spinner, false)
		err := workflows.ChangePassword(context.Background(), workflows.ChangePasswordOptions{
			VaultOptions: opts,
			NewPassword:  confirmedPasswordFunc(opts.Password),
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Check.String() + " Password changed\n" +
			ui.Arrow.String() + " All sessions have ended; run " + ui.Command.Sprint("kestrel vault login") + " to start a new one"
		return nil
	},
}
