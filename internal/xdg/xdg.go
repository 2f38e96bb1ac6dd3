// Package xdg resolves XDG Base Directory Specification paths for local
// state kept by the daemon.
package xdg

import (
	"os"
	"path/filepath"
)

func home() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			homeDir = "/tmp"
		}
	}
	return homeDir
}

// StateHome returns the user-specific state directory ($XDG_STATE_HOME or
// ~/.local/state) joined with the given application name.
func StateHome(app string) string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		dir = filepath.Join(home(), ".local", "state")
	}
	return filepath.Join(dir, app)
}
