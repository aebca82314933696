package utils

import (
	"os"
	"path/filepath"
)

// GetDataDir returns ~/.starseeker, falling back to the temp dir when no home is set.
func GetDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "starseeker")
	}
	return filepath.Join(home, ".starseeker")
}

// EnsureDir creates dir (and parents) with owner-only permissions.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
