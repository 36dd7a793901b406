package cmd

import (
	"context"
	"fmt"

	"github.com/kestrel-run/kestrel/internal/ui"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete expired sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting clean command")
		spinner, cleanup := startSpinner("Removing expired sessions...", verbose)
		defer cleanup()

		result, err := workflows.Clean(context.Background(), workflows.CleanOptions{
			VaultOptions: workflows.VaultOptions{VaultPath: vaultPath},
		})
		if err != nil {
			return fail(spinner, err)
		}

		if result.RemovedCount == 0 {
			spinner.FinalMSG = ui.Check.String() + " No expired sessions"
			return nil
		}
		spinner.FinalMSG = ui.Check.String() + fmt.Sprintf(" Removed %d expired session(s)", result.RemovedCount)
		return nil
	},
}
