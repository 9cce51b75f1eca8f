package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the name of the application used in paths
	AppName = "grabvid"
)

// GetStagingRoot returns the default parent directory for per-job staging areas.
func GetStagingRoot() string {
	return filepath.Join(os.TempDir(), AppName)
}

// GetConfigDir returns the platform-specific configuration directory for the application
// On Linux: ~/.config/grabvid/
// On macOS: ~/Library/Application Support/grabvid/
// On Windows: %AppData%\grabvid\
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}
