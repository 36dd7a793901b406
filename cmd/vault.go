package cmd

import (
	logger "github.com/kestrel-run/kestrel/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose       bool
	debug         bool
	vaultPath     string
	passwordStdin bool
	Logger        logger.Logger

	VaultCmd = &cobra.Command{
		Use:   "vault",
		Short: "Manage the local secrets vault",
		Long: `Stores project secrets in a local vault file.

Administrators unlock the vault with a password (or a session from
'kestrel vault login') to manage projects and details. Workers read the
details they need with a project token alone, using 'kestrel vault resolve'.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing vault command with verbose=%t, debug=%t, vault=%q", verbose, debug, vaultPath)
		},
	}
)

// addVaultFlags registers the flags every vault subcommand shares.
func addVaultFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	fs.BoolVarP(&debug, "debug", "d", false, "enable debug output")
	fs.StringVar(&vaultPath, "vault", "", "path to the vault file (overrides KESTREL_VAULT and the user config)")
	fs.BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
}

func init() {
	addVaultFlags(VaultCmd.PersistentFlags())

	VaultCmd.AddCommand(initCmd)
	VaultCmd.AddCommand(loginCmd)
	VaultCmd.AddCommand(logoutCmd)
	VaultCmd.AddCommand(statusCmd)
	VaultCmd.AddCommand(passwdCmd)
	VaultCmd.AddCommand(projectCmd)
	VaultCmd.AddCommand(detailCmd)
	VaultCmd.AddCommand(resolveCmd)
	VaultCmd.AddCommand(logCmd)
	VaultCmd.AddCommand(cleanCmd)
	VaultCmd.AddCommand(doctorCmd)
}

// Helper functions for testing

// GetVaultCmd returns the VaultCmd for testing.
func GetVaultCmd() *cobra.Command {
	return VaultCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	vaultPath = ""
	passwordStdin = false
	resetLoginCommandState()
	resetDetailCommandState()
	resetResolveCommandState()
	resetLogCommandState()
	resetDoctorCommandState()
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
