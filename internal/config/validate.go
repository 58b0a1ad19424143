package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validation range constants. The debounce bounds keep the synchronizer
// responsive without hammering the backend on every playback tick.
const (
	minSyncDebounce    = 1 * time.Second
	maxSyncDebounce    = 3 * time.Second
	minShutdownTimeout = 1 * time.Second
	minConnectTimeout  = 1 * time.Second
	minRequestTimeout  = 1 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.ServerConfig)...)
	errs = append(errs, validateSync(&cfg.SyncConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	u, err := url.Parse(s.ServerURL)

	switch {
	case s.ServerURL == "":
		errs = append(errs, errors.New("server_url: must not be empty"))
	case err != nil:
		errs = append(errs, fmt.Errorf("server_url: invalid URL %q: %w", s.ServerURL, err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("server_url: scheme must be http or https, got %q", s.ServerURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("server_url: missing host in %q", s.ServerURL))
	}

	if s.UserAgent == "" {
		errs = append(errs, errors.New("user_agent: must not be empty"))
	}

	return errs
}

func validateSync(s *SyncConfig) []error {
	var errs []error

	if d := s.SyncDebounce.Std(); d < minSyncDebounce || d > maxSyncDebounce {
		errs = append(errs, fmt.Errorf("sync_debounce: must be between %s and %s, got %s",
			minSyncDebounce, maxSyncDebounce, d))
	}

	if d := s.CatalogTTL.Std(); d < 0 {
		errs = append(errs, fmt.Errorf("catalog_ttl: must be >= 0, got %s", d))
	}

	if d := s.ShutdownTimeout.Std(); d < minShutdownTimeout {
		errs = append(errs, fmt.Errorf("shutdown_timeout: must be >= %s, got %s",
			minShutdownTimeout, d))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	if d := n.ConnectTimeout.Std(); d < minConnectTimeout {
		errs = append(errs, fmt.Errorf("connect_timeout: must be >= %s, got %s", minConnectTimeout, d))
	}

	if d := n.RequestTimeout.Std(); d < minRequestTimeout {
		errs = append(errs, fmt.Errorf("request_timeout: must be >= %s, got %s", minRequestTimeout, d))
	}

	return errs
}
