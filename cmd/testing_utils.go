// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// capturing output, and running vault subcommands.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kestrel-run/kestrel/internal/configs"
	logger "github.com/kestrel-run/kestrel/internal/logging"
	"github.com/spf13/cobra"
)

const testPassword = "correct horse"

// setupTestEnvironment points the settings at temporary directories and
// clears the environment the commands read. It returns the vault path.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	original := *configs.KestrelSettings
	configs.KestrelSettings.ConfigPath = filepath.Join(tempDir, "config", "config.toml")
	configs.KestrelSettings.DefaultVaultPath = filepath.Join(tempDir, "data", "vault.db")
	configs.KestrelSettings.Username = "testuser"

	t.Setenv(configs.VaultEnvVar, "")
	t.Setenv(configs.SessionEnvVar, "")
	t.Setenv("NO_COLOR", "1")

	t.Cleanup(func() {
		*configs.KestrelSettings = original
		ResetGlobalState()
	})

	return configs.KestrelSettings.DefaultVaultPath
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// createTestCLI creates a complete CLI instance that runs "vault" with args.
// stdin feeds --password-stdin.
func createTestCLI(stdin string, args ...string) *cobra.Command {
	ResetGlobalState()
	Logger = logger.Logger{}

	rootCmd := &cobra.Command{
		Use:           "kestrel",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.AddCommand(VaultCmd)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"vault"}, args...))

	return rootCmd
}

// runVault runs a vault subcommand and returns its combined output.
func runVault(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return captureOutput(func() error {
		return createTestCLI(stdin, args...).Execute()
	})
}

// mustRunVault runs a vault subcommand and fails the test on error.
func mustRunVault(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	output, err := runVault(t, stdin, args...)
	if err != nil {
		t.Fatalf("kestrel vault %s failed: %v\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return output
}

// initializeVault runs "vault init" with the test password.
func initializeVault(t *testing.T) {
	t.Helper()
	mustRunVault(t, testPassword+"\n", "init", "--password-stdin")
}

// extractToken returns the value of the export line for name in output.
func extractToken(t *testing.T, output, name string) string {
	t.Helper()
	prefix := "export " + name + "="
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	t.Fatalf("no %s export line in output:\n%s", name, output)
	return ""
}
