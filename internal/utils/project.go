package utils

import "path/filepath"

// baseName returns the last element of dir, or "" for a filesystem root.
func baseName(dir string) string {
	name := filepath.Base(dir)
	if name == string(filepath.Separator) || name == "." {
		return ""
	}
	return name
}
