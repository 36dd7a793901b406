package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kestrel-run/kestrel/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Kestrel - a local secrets vault for automation tasks.",
	Long: `Kestrel keeps the secrets your automation tasks need in a single local
vault file.

An administrator unlocks the vault with a password and manages projects and
their details. Each project has its own token; a worker holding only that
token can read the project's details and nothing else.

Usage:
  kestrel <command> [flags]

Available Commands:
  vault      Manage the vault, projects, details and sessions

Run 'kestrel help <command>' for more details on a specific command.
`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to Kestrel! Run 'kestrel --help' to see available commands.")
	},
}

func init() {
	rootCmd.AddCommand(cmd.VaultCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrCommandFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
