package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "edumentor"

// Config file name.
const configFileName = "config.toml"

// Well-known file names inside the state directory.
const (
	CredentialFileName = "credential.json"
	CatalogFileName    = "catalog.db"
	SpoolFileName      = "events.jsonl"
	StudyPIDFileName   = "study.pid"
)

// stateDirPermissions keeps the state directory private: it holds the
// bearer credential.
const stateDirPermissions = 0o700

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/edumentor).
// On macOS, uses ~/Library/Application Support/edumentor per Apple
// guidelines. Other platforms fall back to ~/.config/edumentor.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxConfigDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// linuxConfigDir returns the XDG-compliant config directory for Linux.
func linuxConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultStateDir returns the platform-specific directory for mutable
// client state (credential file, catalog cache, playback spool).
// On Linux, respects XDG_STATE_HOME (defaults to ~/.local/state/edumentor).
// On macOS, uses ~/Library/Application Support/edumentor (macOS convention
// collapses config and state into one directory).
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxStateDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "state", appName)
	}
}

// linuxStateDir returns the XDG-compliant state directory for Linux.
func linuxStateDir(home string) string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".local", "state", appName)
}

// DefaultConfigPath returns the full path to the default config file.
// This is used as the fallback when neither EDUMENTOR_CONFIG nor
// --config is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// CredentialPath returns the well-known credential file location inside
// the state directory.
func CredentialPath(stateDir string) string {
	return filepath.Join(stateDir, CredentialFileName)
}

// CatalogPath returns the catalog cache database location inside the
// state directory.
func CatalogPath(stateDir string) string {
	return filepath.Join(stateDir, CatalogFileName)
}

// DefaultSpoolPath returns the default playback-event spool location
// inside the state directory.
func DefaultSpoolPath(stateDir string) string {
	return filepath.Join(stateDir, SpoolFileName)
}

// StudyPIDPath returns the PID file a running study session holds inside
// the state directory.
func StudyPIDPath(stateDir string) string {
	return filepath.Join(stateDir, StudyPIDFileName)
}

// EnsureStateDir creates the state directory with private permissions if
// it does not already exist.
func EnsureStateDir(stateDir string) error {
	if stateDir == "" {
		return fmt.Errorf("config: state directory not set and no platform default available")
	}

	if err := os.MkdirAll(stateDir, stateDirPermissions); err != nil {
		return fmt.Errorf("config: creating state directory %s: %w", stateDir, err)
	}

	return nil
}
