// ABOUTME: XDG data directory resolution for the activity database and TUI log.
// ABOUTME: Honors XDG_DATA_HOME, falling back to ~/.local/share/neurogems.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDirName = "neurogems"

func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}

// resolveDataDir prefers the flag, then the configured directory, then the XDG default,
// and makes sure the directory exists.
func resolveDataDir(flagValue, configured string) (string, error) {
	dir := flagValue
	if dir == "" {
		dir = configured
	}
	if dir == "" {
		var err error
		if dir, err = defaultDataDir(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return dir, nil
}
