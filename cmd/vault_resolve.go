package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kestrel-run/kestrel/internal/runtime"
	"github.com/kestrel-run/kestrel/internal/utils"
	"github.com/kestrel-run/kestrel/internal/workflows"

	"github.com/spf13/cobra"
)

// outputFormat is a pflag.Value restricted to the formats resolve can print.
type outputFormat string

const (
	formatLines outputFormat = "lines"
	formatEnv   outputFormat = "env"
)

func (f *outputFormat) String() string { return string(*f) }

func (f *outputFormat) Set(s string) error {
	switch outputFormat(s) {
	case formatLines, formatEnv:
		*f = outputFormat(s)
		return nil
	default:
		return fmt.Errorf("must be %q or %q", formatLines, formatEnv)
	}
}

func (f *outputFormat) Type() string { return "format" }

var (
	resolveProject string
	resolveFormat  = formatLines
)

func init() {
	resolveCmd.Flags().StringVarP(&resolveProject, "project", "p", "", "project whose details are resolved (required)")
	resolveCmd.Flags().Var(&resolveFormat, "format", `output format: "lines" (name=value) or "env" (export lines)`)
	_ = resolveCmd.MarkFlagRequired("project")
}

// resetResolveCommandState resets the resolve command's global state for testing.
func resetResolveCommandState() {
	resolveProject = ""
	resolveFormat = formatLines
}

var resolveCmd = &cobra.Command{
	Use:   "resolve --project <name> <context=detail>...",
	Short: "Decrypt the details a task needs using a project token",
	Long: `Worker-side lookup. Reads the project token from KESTREL_TOKEN_<PROJECT>
(the project name upper-cased, other characters replaced by '_') and
decrypts each requested detail. The master password is never needed.

Each argument maps a context name to a detail key; a bare name uses the same
key. Either every value is printed or the command fails.

Examples:
  export KESTREL_TOKEN_BOTC=...
  kestrel vault resolve --project botc username=email password
  eval "$(kestrel vault resolve -p botc --format env API_KEY=api-key)"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries values only.
		Logger.Out = cmd.ErrOrStderr()
		Logger.Infof("Starting resolve command for project %s", resolveProject)

		needed, err := workflows.ParseMappings(args)
		if err == nil && resolveFormat == formatEnv {
			err = workflows.CheckShellNames(needed)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, formatVaultError(err))
			return ErrCommandFailed
		}

		names := make([]string, 0, len(needed))
		for name := range needed {
			names = append(names, name)
		}
		sort.Strings(names)
		Logger.Infof("Resolving:%s", utils.FormatNames(names))

		result, err := workflows.Resolve(context.Background(), workflows.ResolveOptions{
			VaultPath:   vaultPath,
			ProjectName: resolveProject,
			Needed:      needed,
		})
		if err != nil {
			Logger.Debugf("Token variable: %s", runtime.TokenEnvVar(resolveProject))
			fmt.Fprintln(os.Stderr, formatVaultError(err))
			return ErrCommandFailed
		}

		out := cmd.OutOrStdout()
		for _, v := range result.Values {
			switch resolveFormat {
			case formatEnv:
				fmt.Fprintf(out, "export %s=%s\n", v.Name, shellQuote(v.Value))
			default:
				fmt.Fprintf(out, "%s=%s\n", v.Name, v.Value)
			}
		}
		return nil
	},
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
