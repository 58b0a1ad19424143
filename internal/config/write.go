package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only; the file holds no secrets.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the starter config file written by "config init".
// All settings are present as commented-out defaults so users can discover
// every option without reading docs. The template is written once and never
// regenerated.
const configTemplate = `# edumentor configuration

# Backend root URL. The REST API lives under /api, the websocket under /ws.
# server_url = "http://localhost:8000"

# Directory for the credential file, catalog cache, and playback spool.
# state_dir = ""

# Quiet window coalescing playback events into one progress write (1s-3s).
# sync_debounce = "2s"

# JSON-lines file external players append playback events to.
# Default: <state_dir>/events.jsonl
# spool_path = ""

# How old the local course/mentor cache may grow before listings refresh.
# "0s" disables cache reads.
# catalog_ttl = "15m"

# Upper bound on the final progress flush when study mode is interrupted.
# shutdown_timeout = "10s"

# Log verbosity: debug, info, warn, error
# log_level = "info"

# Log format: auto, text, json
# log_format = "auto"

# HTTP timeouts.
# connect_timeout = "10s"
# request_timeout = "30s"
`

// WriteStarter writes the commented starter config to path, creating parent
// directories as needed. It refuses to overwrite an existing file so user
// edits are never destroyed.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return fmt.Errorf("config: creating config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), configFilePermissions); err != nil {
		return fmt.Errorf("config: writing starter config: %w", err)
	}

	return nil
}
