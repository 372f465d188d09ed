package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// InstallDir returns where the launcher puts the game on goos.
func InstallDir(goos, home, appData string) string {
	switch goos {
	case "windows":
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, ".minecraft")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "minecraft")
	default:
		return filepath.Join(home, ".minecraft")
	}
}

// DefaultInstallDir is InstallDir for the running system.
func DefaultInstallDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return InstallDir(runtime.GOOS, home, os.Getenv("APPDATA")), nil
}
