package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath makes path absolute relative to baseDir. A leading "~/" is
// expanded to the user's home directory. Empty and absolute paths are
// returned unchanged.
func ResolvePath(path, baseDir string) string {
	switch {
	case path == "" || filepath.IsAbs(path):
		return path
	case path == "~" || strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Join(baseDir, path)
}

// ResolvePaths applies ResolvePath to each entry of paths.
func ResolvePaths(paths []string, baseDir string) []string {
	if len(paths) == 0 {
		return nil
	}
	resolved := make([]string, len(paths))
	for i, p := range paths {
		resolved[i] = ResolvePath(p, baseDir)
	}
	return resolved
}
