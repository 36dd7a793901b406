package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kestrel-run/kestrel/internal/ui"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	doctorJSONOutput bool
	// doctorExitFunc is the function called to exit with a specific code.
	// Can be overridden for testing.
	doctorExitFunc = os.Exit
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
}

func resetDoctorCommandState() {
	doctorJSONOutput = false
	doctorExitFunc = os.Exit
}

// SetDoctorExitFunc sets the exit function for testing purposes.
func SetDoctorExitFunc(f func(int)) {
	doctorExitFunc = f
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the vault",
	Long: `Runs a series of health checks on the vault and local configuration.

The doctor command checks:
  - Vault file existence and permissions
  - Master key envelope presence
  - User configuration validity and permissions
  - Stored session token validity
  - Audit log permissions

It never asks for the password.

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	spinner, cleanup := startSpinner("Running health checks...", verbose)

	result, err := workflows.Doctor(context.Background(), workflows.DoctorOptions{
		VaultOptions: workflows.VaultOptions{VaultPath: vaultPath},
	})
	if err != nil {
		spinner.FinalMSG = ui.Cross.String() + " Failed to run health checks: " + err.Error()
		cleanup()
		return err
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
	}

	if doctorJSONOutput {
		spinner.FinalMSG = ""
		cleanup()
		if err := outputDoctorJSON(result); err != nil {
			return err
		}
	} else {
		switch {
		case result.Summary.Errors > 0:
			spinner.FinalMSG = ui.Cross.String() + " Health checks completed with errors"
		case result.Summary.Warnings > 0:
			spinner.FinalMSG = ui.Caution.String() + " Health checks completed with warnings"
		default:
			spinner.FinalMSG = ui.Check.String() + " Health checks completed"
		}
		// The report goes out after the spinner line is cleared.
		final := spinner.FinalMSG
		spinner.FinalMSG = ""
		cleanup()
		printDoctorResults(result)
		fmt.Println(final)
	}

	// Set exit code based on results.
	if result.Summary.Errors > 0 {
		doctorExitFunc(2)
	} else if result.Summary.Warnings > 0 {
		doctorExitFunc(1)
	}
	return nil
}

// outputDoctorJSON outputs the result as JSON.
func outputDoctorJSON(result *workflows.DoctorResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// printDoctorResults prints the doctor results in a human-readable format.
func printDoctorResults(result *workflows.DoctorResult) {
	fmt.Println("Vault: " + ui.Path.Sprint(result.VaultPath))
	fmt.Println()

	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Check.String()
		case workflows.CheckWarning:
			statusIcon = ui.Caution.String()
		case workflows.CheckError:
			statusIcon = ui.Cross.String()
		}
		fmt.Printf("%s %s\n", statusIcon, check.Message)
	}

	fmt.Println()
	fmt.Printf("Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Printf(", %s", ui.Caution.Sprint(fmt.Sprintf("%d warning(s)", result.Summary.Warnings)))
	}
	if result.Summary.Errors > 0 {
		fmt.Printf(", %s", ui.Cross.Sprint(fmt.Sprintf("%d error(s)", result.Summary.Errors)))
	}
	fmt.Println()

	if len(result.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("Suggestions:")
		for _, s := range result.Suggestions {
			fmt.Println("  " + ui.Arrow.String() + " " + s)
		}
	}
	fmt.Println()
}
