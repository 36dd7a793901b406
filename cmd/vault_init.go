package cmd

import (
	"context"
	"fmt"

	"github.com/kestrel-run/kestrel/internal/ui"
	"github.com/kestrel-run/kestrel/internal/utils"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vault and set its password",
	Long: `Creates the vault file and a master key protected by a password.

The password is asked for twice. With --password-stdin the first line of
stdin is used instead.

Examples:
  kestrel vault init
  echo "$PASSWORD" | kestrel vault init --password-stdin
  kestrel vault init --vault ./team.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		if !passwordStdin && utils.IsTerminal() {
			banner := figure.NewColorFigure("kestrel", "alligator2", "green", true)
			fmt.Fprintln(cmd.OutOrStdout(), banner.String())
		}
		spinner, cleanup := startSpinner("Initializing vault...", verbose)
		defer cleanup()

		opts := vaultOptions(cmd, spinner, false)
		opts.Password = confirmedPasswordFunc(opts.Password)

		result, err := workflows.Init(context.Background(), workflows.InitOptions{VaultOptions: opts})
		if err != nil {
			return fail(spinner, err)
		}
		Logger.Infof("Vault created at %s", result.VaultPath)

		spinner.FinalMSG = ui.Check.String() + " Vault initialized at " + ui.Path.Sprint(result.VaultPath) + "\n" +
			"    audit log: " + ui.Path.Sprint(result.AuditPath) + "\n" +
			ui.Arrow.String() + " Run " + ui.Command.Sprint("kestrel vault project create <name>") + " to add a project"
		return nil
	},
}
