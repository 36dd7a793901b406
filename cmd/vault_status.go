package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-run/kestrel/internal/ui"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session is active",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		result, err := workflows.Status(context.Background(), workflows.StatusOptions{
			VaultOptions: workflows.VaultOptions{VaultPath: vaultPath},
		})
		if err != nil {
			fmt.Println(formatVaultError(err))
			return ErrCommandFailed
		}

		fmt.Println("Vault: " + ui.Path.Sprint(result.VaultPath))
		if !result.Initialized {
			fmt.Println(ui.Cross.String() + " The vault has not been initialized")
			fmt.Println(ui.Arrow.String() + " Run " + ui.Command.Sprint("kestrel vault init") + " first")
			return nil
		}

		if result.Cleared {
			Logger.Warnf("The stored session token was malformed and has been removed")
		}
		if !result.Active {
			fmt.Println(ui.None.Sprint("no active session"))
			return nil
		}

		fmt.Printf("%s Session active (%s), %s\n",
			ui.Check.String(), result.Source, remaining(result.ExpiresAt, time.Now()))
		return nil
	},
}

// remaining renders the time left until expiresAt in whole minutes.
func remaining(expiresAt, now time.Time) string {
	left := expiresAt.Sub(now)
	switch {
	case left < time.Minute:
		return "less than a minute remaining"
	case left < 2*time.Minute:
		return "1 minute remaining"
	default:
		return fmt.Sprintf("%d minutes remaining", int(left/time.Minute))
	}
}
