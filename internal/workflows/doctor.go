package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kestrel-run/kestrel/internal/audit"
	"github.com/kestrel-run/kestrel/internal/configs"
	"github.com/kestrel-run/kestrel/internal/vault"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	VaultPath   string        `json:"vault_path"`
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	VaultOptions
}

// doctor carries what every check needs.
type doctor struct {
	ctx  context.Context
	opts VaultOptions
	path string
}

// Doctor runs health checks on the vault and the local configuration. It never
// asks for the password and never decrypts anything.
//
// The doctor workflow checks:
//   - Vault file existence and permissions
//   - Master key envelope presence
//   - User configuration validity and permissions
//   - Stored session token validity
//   - Audit log permissions
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	path, err := opts.path()
	if err != nil {
		return nil, err
	}
	d := &doctor{ctx: ctx, opts: opts.VaultOptions, path: path}

	checks := []func() CheckResult{
		d.checkVaultFile,
		d.checkVaultPermissions,
		d.checkVaultInitialized,
		d.checkUserConfig,
		d.checkUserConfigPermissions,
		d.checkStoredSession,
		d.checkAuditLogPermissions,
	}

	var results []CheckResult
	for _, check := range checks {
		results = append(results, check())
	}

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		VaultPath:   path,
		Checks:      results,
		Summary:     calculateDoctorSummary(results),
		Suggestions: suggestions,
	}, nil
}

func (d *doctor) checkVaultFile() CheckResult {
	info, err := os.Stat(d.path)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:       "Vault file",
			Status:     CheckError,
			Message:    fmt.Sprintf("Vault file not found at %s", d.path),
			Suggestion: "Run 'kestrel vault init' to create the vault",
		}
	}
	if err != nil {
		return CheckResult{
			Name:    "Vault file",
			Status:  CheckError,
			Message: fmt.Sprintf("Cannot stat vault file: %v", err),
		}
	}
	if info.IsDir() {
		return CheckResult{
			Name:       "Vault file",
			Status:     CheckError,
			Message:    fmt.Sprintf("%s is a directory", d.path),
			Suggestion: "Point --vault or KESTREL_VAULT at a file",
		}
	}

	return CheckResult{
		Name:    "Vault file",
		Status:  CheckPass,
		Message: "Vault file exists",
	}
}

func (d *doctor) checkVaultPermissions() CheckResult {
	return checkFileMode("Vault file permissions", d.path, "vault file")
}

func (d *doctor) checkVaultInitialized() CheckResult {
	if _, err := os.Stat(d.path); err != nil {
		return CheckResult{
			Name:       "Vault initialized",
			Status:     CheckError,
			Message:    "Cannot check master key: vault file not found",
			Suggestion: "Run 'kestrel vault init' to create the vault",
		}
	}

	v, err := vault.Open(d.ctx, d.path)
	if err != nil {
		return CheckResult{
			Name:       "Vault initialized",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to open vault: %v", err),
			Suggestion: "Check that the vault file is a kestrel vault",
		}
	}
	defer v.Close()

	ok, err := v.IsInitialized(d.ctx)
	if err != nil {
		return CheckResult{
			Name:    "Vault initialized",
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to read vault config: %v", err),
		}
	}
	if !ok {
		return CheckResult{
			Name:       "Vault initialized",
			Status:     CheckError,
			Message:    "Vault has no master key",
			Suggestion: "Run 'kestrel vault init' to create the vault",
		}
	}

	return CheckResult{
		Name:    "Vault initialized",
		Status:  CheckPass,
		Message: "Master key envelope present",
	}
}

func (d *doctor) checkUserConfig() CheckResult {
	configPath := configs.KestrelSettings.ConfigPath
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return CheckResult{
			Name:    "User configuration",
			Status:  CheckPass,
			Message: "No user config; defaults in use",
		}
	}

	config := &configs.UserConfig{}
	if err := configs.LoadTOML(configPath, config); err != nil {
		return CheckResult{
			Name:       "User configuration",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to parse user config: %v", err),
			Suggestion: fmt.Sprintf("Check %s for syntax errors", configPath),
		}
	}
	if config.Vault.SessionMinutes < 0 {
		return CheckResult{
			Name:       "User configuration",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("session_minutes is %d; the default is used instead", config.Vault.SessionMinutes),
			Suggestion: "Set [vault] session_minutes to a positive number",
		}
	}

	return CheckResult{
		Name:    "User configuration",
		Status:  CheckPass,
		Message: "User configuration valid",
	}
}

func (d *doctor) checkUserConfigPermissions() CheckResult {
	configPath := configs.KestrelSettings.ConfigPath
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return CheckResult{
			Name:    "User config permissions",
			Status:  CheckPass,
			Message: "No user config to check",
		}
	}
	return checkFileMode("User config permissions", configPath, "user config")
}

func (d *doctor) checkStoredSession() CheckResult {
	config, err := configs.LoadUserConfig()
	if err != nil || config.Session.Token == "" {
		return CheckResult{
			Name:    "Stored session",
			Status:  CheckPass,
			Message: "No stored session",
		}
	}

	v, err := vault.Open(d.ctx, d.path)
	if err != nil {
		return CheckResult{
			Name:    "Stored session",
			Status:  CheckWarning,
			Message: "Cannot check stored session: vault not readable",
		}
	}
	defer v.Close()

	_, ok, err := v.SessionStatus(d.ctx, config.Session.Token)
	if err != nil {
		return CheckResult{
			Name:       "Stored session",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Stored session token is unusable: %v", err),
			Suggestion: "Run 'kestrel vault logout' and log in again",
		}
	}
	if !ok {
		return CheckResult{
			Name:       "Stored session",
			Status:     CheckWarning,
			Message:    "Stored session has expired or was ended",
			Suggestion: "Run 'kestrel vault login' to start a new session",
		}
	}

	return CheckResult{
		Name:    "Stored session",
		Status:  CheckPass,
		Message: "Stored session is active",
	}
}

func (d *doctor) checkAuditLogPermissions() CheckResult {
	logPath := audit.LogPath(d.path)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return CheckResult{
			Name:    "Audit log permissions",
			Status:  CheckPass,
			Message: "No audit log yet",
		}
	}
	return checkFileMode("Audit log permissions", logPath, "audit log")
}

// checkFileMode passes when path is readable by its owner only.
func checkFileMode(name, path, what string) CheckResult {
	info, err := os.Stat(path)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Cannot check %s permissions: %v", what, err),
		}
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%s has permissions %04o, expected 0600", what, mode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s'", path),
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("%s permissions are secure (%04o)", what, mode),
	}
}

// calculateDoctorSummary calculates the counts of checks by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
