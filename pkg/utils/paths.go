package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDir = "daybook"

// GetDefaultDBPathOnly returns a system-appropriate default path for the database
func GetDefaultDBPathOnly() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "daybook.db"
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(homeDir, "AppData", "Roaming", appDir, "daybook.db")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appDir, "daybook.db")
	default: // Primarily Linux, but also other UNIX-like systems.
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, appDir, "daybook.db")
		}
		return filepath.Join(homeDir, ".local", "share", appDir, "daybook.db")
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory to expand path '%s': %w", path, err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}

// ResolveAndEnsureDBPath turns providedPath (or the default when empty) into an
// absolute path whose directory exists. ":memory:" is returned unchanged.
func ResolveAndEnsureDBPath(providedPath string) (string, error) {
	if strings.HasPrefix(providedPath, ":memory:") {
		return providedPath, nil
	}

	targetPath := providedPath
	if targetPath == "" {
		targetPath = GetDefaultDBPathOnly()
	}

	targetPath, err := ExpandHome(targetPath)
	if err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", targetPath, err)
	}
	targetPath = absPath

	dbDir := filepath.Dir(targetPath)
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory '%s' for database: %w", dbDir, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to stat directory '%s' for database: %w", dbDir, err)
	}

	return targetPath, nil
}

// FindUpwards looks for name in dir and each of its parents, returning the
// first match or "" when the filesystem root is reached.
func FindUpwards(dir, name string) string {
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
