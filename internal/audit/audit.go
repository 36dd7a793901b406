package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/kestrel-run/kestrel/internal/configs"
)

// FileName is the audit log's name inside the vault directory.
const FileName = "audit.jsonl"

// Entry represents a single audit log entry. It never carries secret values
// or tokens.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // OS user performing the action.
	Operation string `json:"op"`   // Operation name.

	// Optional fields depending on operation.
	Project    string `json:"project,omitempty"`     // For project and detail operations.
	Detail     string `json:"detail,omitempty"`      // For detail set/get/remove.
	NewProject string `json:"new_project,omitempty"` // For rename.
	Count      int    `json:"count,omitempty"`       // For resolve and purge.
	Minutes    int    `json:"minutes,omitempty"`     // For login.
}

// Log appends an entry to the audit log next to the vault file.
// Operations should not fail just because audit logging failed, so errors are
// dropped.
func Log(vaultPath string, entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	logPath := LogPath(vaultPath)
	if logPath == "" {
		return
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogWithUser returns an entry for op with the user field populated.
func LogWithUser(op string) Entry {
	return Entry{Operation: op, User: configs.KestrelSettings.Username}
}

// LogPath returns the path to the audit log for the given vault file.
// Returns empty string if vaultPath is empty.
func LogPath(vaultPath string) string {
	if vaultPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(vaultPath), FileName)
}

// ReadEntries reads all entries from the audit log of the given vault file.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(vaultPath string) ([]Entry, error) {
	logPath := LogPath(vaultPath)
	if logPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
