// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for edumentor-go. It supports a
// four-layer override chain (defaults -> config file -> environment ->
// CLI flags) with flat top-level keys.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Sub-configs are embedded so their keys appear flat at the top level of
// the file; TOML sections are not used.
type Config struct {
	ServerConfig
	SyncConfig
	LoggingConfig
	NetworkConfig

	// StateDir holds the credential file, the catalog cache, and the
	// default playback spool. Empty means the platform default.
	StateDir string `toml:"state_dir"`

	// Path is the config file this Config was loaded from, or empty when
	// running on pure defaults. Set by Resolve, never read from TOML.
	Path string `toml:"-"`
}

// ServerConfig identifies the EduMentor backend to talk to.
type ServerConfig struct {
	// ServerURL is the scheme://host[:port] root of the backend. The REST
	// surface lives under /api and the websocket endpoint under /ws.
	ServerURL string `toml:"server_url"`
	UserAgent string `toml:"user_agent"`
}

// SyncConfig controls the progress synchronizer and the study mode.
type SyncConfig struct {
	// SyncDebounce is the quiet window that coalesces a burst of playback
	// events into a single progress write per course.
	SyncDebounce Duration `toml:"sync_debounce"`

	// SpoolPath is the JSON-lines file external players append playback
	// events to. Empty means <state_dir>/events.jsonl.
	SpoolPath string `toml:"spool_path"`

	// CatalogTTL bounds how old the local course/mentor cache may be
	// before listings refresh from the server. Zero disables cache reads.
	CatalogTTL Duration `toml:"catalog_ttl"`

	// ShutdownTimeout bounds the final progress flush when study mode is
	// interrupted.
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout Duration `toml:"connect_timeout"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	ServerURL  *string // --server flag
	StateDir   *string // --state-dir flag
	LogLevel   *string // derived from -v / -q / --log-level
	LogFormat  *string // --log-format flag
}
