package config

import (
	"os"
	"path/filepath"
)

// UserConfigDir returns the directory holding the user-level settings file,
// honoring XDG_CONFIG_HOME when set.
func UserConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wscode"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wscode"), nil
}

// ProjectSettingsDir returns the `.wscode` directory under the workspace root.
func ProjectSettingsDir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".wscode")
}
