package cmd

import (
	"context"
	"fmt"

	"github.com/kestrel-run/kestrel/internal/runtime"
	"github.com/kestrel-run/kestrel/internal/ui"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects and their tokens",
}

func init() {
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectExportCmd)
	projectCmd.AddCommand(projectRotateCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	projectCmd.AddCommand(projectListCmd)
}

// tokenMessage shows a project token with the variable workers read it from.
func tokenMessage(project, token string) string {
	return fmt.Sprintf("export %s=%s", runtime.TokenEnvVar(project), ui.Token.Sprint(token))
}

var projectCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project and print its token",
	Long: `Creates a project with a fresh project key and prints the project token.

Without a name, one is derived from the current directory.

Examples:
  kestrel vault project create botc
  kestrel vault project create`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting project create command")
		spinner, cleanup := startSpinner("Creating project...", verbose)
		defer cleanup()

		var name string
		if len(args) == 1 {
			name = args[0]
		}

		result, err := workflows.CreateProject(context.Background(), workflows.CreateOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			ProjectName:  name,
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		spinner.FinalMSG = ui.Check.String() + " Created project " + ui.Project.Sprint(result.ProjectName) + "\n" +
			tokenMessage(result.ProjectName, result.Token) + "\n" +
			ui.Arrow.String() + " Give this token to the workers that need the project's details"
		return nil
	},
}

var projectExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Print a project's current token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting project export command")
		spinner, cleanup := startSpinner("Exporting token...", verbose)
		defer cleanup()

		result, err := workflows.ExportToken(context.Background(), workflows.ExportOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			ProjectName:  args[0],
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		spinner.FinalMSG = tokenMessage(result.ProjectName, result.Token)
		return nil
	},
}

var projectRotateCmd = &cobra.Command{
	Use:   "rotate <name>",
	Short: "Replace a project's key",
	Long: `Generates a new project key and re-wraps every detail's data key under
it in a single transaction. Tokens issued before the rotation stop working
immediately; details keep their values.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting project rotate command")
		spinner, cleanup := startSpinner("Rotating project key...", verbose)
		defer cleanup()

		result, err := workflows.RotateProject(context.Background(), workflows.RotateOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			ProjectName:  args[0],
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		spinner.FinalMSG = ui.Check.String() + fmt.Sprintf(" Rotated %s (%d details re-wrapped)\n", ui.Project.Sprint(result.ProjectName), result.DetailCount) +
			tokenMessage(result.ProjectName, result.Token) + "\n" +
			ui.Caution.String() + " The previous token no longer works; update every worker"
		return nil
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a project",
	Long: `Renames a project. The project key is unchanged, so existing tokens keep
working, but workers read them from a variable named after the project.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting project rename command")
		spinner, cleanup := startSpinner("Renaming project...", verbose)
		defer cleanup()

		result, err := workflows.RenameProject(context.Background(), workflows.RenameOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			OldName:      args[0],
			NewName:      args[1],
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		spinner.FinalMSG = ui.Check.String() + " Renamed " + ui.Project.Sprint(result.OldName) + " to " + ui.Project.Sprint(result.NewName) + "\n" +
			ui.Arrow.String() + " Workers now read the token from " + ui.Command.Sprint(runtime.TokenEnvVar(result.NewName))
		return nil
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a project and all of its details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting project remove command")
		spinner, cleanup := startSpinner("Removing project...", verbose)
		defer cleanup()

		result, err := workflows.RemoveProject(context.Background(), workflows.RemoveOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
			ProjectName:  args[0],
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		spinner.FinalMSG = ui.Check.String() + fmt.Sprintf(" Removed %s and %d details", ui.Project.Sprint(result.ProjectName), result.DetailCount)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting project list command")
		spinner, cleanup := startSpinner("Listing projects...", verbose)
		defer cleanup()

		result, err := workflows.ListProjects(context.Background(), workflows.ListProjectsOptions{
			VaultOptions: vaultOptions(cmd, spinner, false),
		})
		if err != nil {
			return fail(spinner, err)
		}
		warnRejectedSessions(result.Auth)

		if len(result.Projects) == 0 {
			spinner.FinalMSG = ui.None.Sprint("no projects")
			return nil
		}

		msg := ""
		for _, p := range result.Projects {
			msg += fmt.Sprintf("%-30s  %3d details  created %s\n", p.Name, p.DetailCount, p.CreatedAt.Local().Format("2006-01-02"))
		}
		spinner.FinalMSG = msg
		return nil
	},
}
