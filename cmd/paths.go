package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/avoronkov/pdnaudit/internal/shared/constants"
)

// getDataDir returns the appropriate data directory for the current OS
// following XDG Base Directory specification on Linux/Unix
func getDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %LOCALAPPDATA%\pdnaudit
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("APPDATA")
		}
		if baseDir == "" {
			return "", fmt.Errorf("could not determine Windows data directory")
		}
		baseDir = filepath.Join(baseDir, "pdnaudit")

	case "darwin":
		// macOS: ~/Library/Application Support/pdnaudit
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support", "pdnaudit")

	default:
		// Linux/Unix: $XDG_DATA_HOME/pdnaudit > ~/.local/share/pdnaudit
		xdgDataHome := os.Getenv("XDG_DATA_HOME")
		if xdgDataHome != "" {
			baseDir = filepath.Join(xdgDataHome, "pdnaudit")
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".local", "share", "pdnaudit")
		}
	}

	if err := os.MkdirAll(baseDir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// getReportsDir returns the directory where audit reports are stored.
func getReportsDir() (string, error) {
	reportsDir := filepath.Join(dataDir, "reports")
	if err := os.MkdirAll(reportsDir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	return reportsDir, nil
}

// getRulesDir returns the directory scanned for extra rule definitions.
// The directory is not created: its absence simply means no extra rules.
func getRulesDir() string {
	return filepath.Join(dataDir, "rules")
}
