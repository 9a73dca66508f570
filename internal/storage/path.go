package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxkey", "store.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "voxkey", "store.json"), nil
}
