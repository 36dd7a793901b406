package utils

import (
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"
)

var (
	invalidNameChars = regexp.MustCompile(`[^a-z0-9._-]`)
	repeatedHyphens  = regexp.MustCompile(`-+`)
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// SanitizeName turns an arbitrary string into a valid project name by
// lowercasing it, converting spaces to hyphens and dropping anything else
// IsValidName would reject.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	name = invalidNameChars.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")

	// Names must start with a letter or digit.
	name = strings.TrimLeft(name, "-._")
	name = strings.TrimRight(name, "-")

	if len(name) > MaxNameLength {
		name = strings.TrimRight(name[:MaxNameLength], "-")
	}
	if name == "" {
		name = "project"
	}
	return name
}

// GenerateProjectName derives a project name from the current directory.
// If the name is taken it appends a number suffix (-2, -3, etc.).
func GenerateProjectName(existingNames []string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return uniqueName(SanitizeName(baseName(dir)), existingNames), nil
}

func uniqueName(base string, existingNames []string) string {
	existing := make(map[string]bool, len(existingNames))
	for _, name := range existingNames {
		existing[strings.ToLower(name)] = true
	}

	name := base
	for suffix := 2; existing[strings.ToLower(name)]; suffix++ {
		name = base + "-" + strconv.Itoa(suffix)
	}
	return name
}
