package utils

import (
	"regexp"
	"strings"

	"github.com/kestrel-run/kestrel/internal/ui"
)

// MaxNameLength bounds project and detail names.
const MaxNameLength = 128

// nameRegex accepts letters, digits, dots, underscores and hyphens, starting
// with a letter or digit.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// IsValidName checks if a project or detail name is valid.
func IsValidName(name string) bool {
	if name == "" || len(name) > MaxNameLength {
		return false
	}
	return nameRegex.MatchString(name)
}

// EnvName upper-cases name and replaces every character other than an ASCII
// letter or digit with an underscore.
func EnvName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FormatNames formats a slice of names into an indented bullet list.
func FormatNames(names []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, name := range names {
		b.WriteString("    - ")
		b.WriteString(ui.Detail.Sprint(name))
		b.WriteString("\n")
	}
	return b.String()
}
