package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrel-run/kestrel/internal/ui"
	"github.com/kestrel-run/kestrel/internal/utils"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	detailValue  string
	detailStdin  bool
	detailListOf string
)

func init() {
	detailSetCmd.Flags().StringVar(&detailValue, "value", "", "the value to store (visible in shell history; prefer stdin)")
	detailSetCmd.Flags().BoolVar(&detailStdin, "stdin", false, "read the value from stdin")
	detailListCmd.Flags().StringVarP(&detailListOf, "project", "p", "", "only list details of this project")

	detailCmd.AddCommand(detailSetCmd)
	detailCmd.AddCommand(detailGetCmd)
	detailCmd.AddCommand(detailListCmd)
	detailCmd.AddCommand(detailRemoveCmd)
}

// resetDetailCommandState resets the detail commands' global state for testing.
func resetDetailCommandState() {
	detailValue = ""
	detailStdin = false
	detailListOf = ""
	if f := detailSetCmd.Flags().Lookup("value"); f != nil {
		f.Changed = false
	}
}

var detailCmd = &cobra.Command{
	Use:   "detail",
	Short: "Manage the details stored under a project",
}

var detailSetCmd = &cobra.Command{
	Use:   "set <project> <key>",
	Short: "Store a detail",
	Long: `Encrypts a value under a fresh data key and stores it under the project,
replacing any previous value for the key.

The value comes from --value or, with --stdin, from standard input (one
trailing newline is dropped). When stdin carries the value, the password is
read from the terminal.

Examples:
  kestrel vault detail set botc email --value a@b.com
  printf 'hunter2' | kestrel vault detail set botc password --stdin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting detail set command")

		if detailStdin && passwordStdin {
			return Logger.ErrorfAndReturn("%s and %s cannot be used together", ui.Flag.Sprint("--stdin"), ui.Flag.Sprint("--password-stdin"))
		}
		if detailStdin == cmd.Flags().Changed("value") {
			return Logger.ErrorfAndReturn("exactly one of %s or %s is required", ui.Flag.Sprint("--value"), ui.Flag.Sprint("--stdin"))
		}

		value := detailValue
		if detailStdin {
			data, err := utils.ReadStdin()
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read value: %v", err)
			}
			value = strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
		}

		spinner, cleanup := startSpinner("Storing detail...", verbose)
		defer cleanup()

		result, err := workflows.SetDetail(context.Background(), workflows.SetDetailOptions{
			DetailOptions: workflows.DetailOptions{
				VaultOptions: vaultOptions(cmd, spinner, detailStdin),
				ProjectName:  args[0],
				Key:          args[1],
			},
			Value: value,
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		spinner.FinalMSG = ui.Check.String() + " Stored " + ui.DetailRef(result.ProjectName, result.Key)
		return nil
	},
}

var detailGetCmd = &cobra.Command{
	Use:   "get <project> <key>",
	Short: "Print a detail's value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting detail get command")
		spinner, cleanup := startSpinner("Decrypting detail...", verbose)
		defer cleanup()

		result, err := workflows.GetDetail(context.Background(), workflows.DetailOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			ProjectName:  args[0],
			Key:          args[1],
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		spinner.FinalMSG = result.Value
		return nil
	},
}

var detailListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detail keys (never values)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting detail list command")
		spinner, cleanup := startSpinner("Listing details...", verbose)
		defer cleanup()

		result, err := workflows.ListDetails(context.Background(), workflows.ListDetailsOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			ProjectName:  detailListOf,
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		if len(result.Details) == 0 {
			spinner.FinalMSG = ui.None.Sprint("no details")
			return nil
		}

		msg := ""
		for _, d := range result.Details {
			msg += fmt.Sprintf("%-40s  updated %s\n", d.Project+"/"+d.Key, d.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		spinner.FinalMSG = msg
		return nil
	},
}

var detailRemoveCmd = &cobra.Command{
	Use:   "remove <project> <key>",
	Short: "Delete a detail",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting detail remove command")
		spinner, cleanup := startSpinner("Removing detail...", verbose)
		defer cleanup()

		result, err := workflows.RemoveDetail(context.Background(), workflows.DetailOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			ProjectName:  args[0],
			Key:          args[1],
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		spinner.FinalMSG = ui.Check.String() + " Removed " + ui.DetailRef(result.ProjectName, result.Key)
		return nil
	},
}
