package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the log directory, {PKGINDEX_HOME or ~/.pkgindex}/logs.
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	if dir := os.Getenv("PKGINDEX_HOME"); dir != "" {
		return filepath.Join(dir, "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".pkgindex", "logs")
	}
	return filepath.Join(home, ".pkgindex", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "pkgindex.log")
}

// FindLogFile returns explicit if it exists, else the default log path.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no log file found. Run a command with --debug first.\nExpected at: %s", path)
}
