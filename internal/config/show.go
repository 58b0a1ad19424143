package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// users visibility into the effective values after all four override
// layers (defaults -> file -> env -> CLI) have been applied.
func RenderEffective(cfg *Config, w io.Writer) error {
	ew := &errWriter{w: w}

	source := cfg.Path
	if source == "" {
		source = "(defaults, no config file)"
	}

	ew.printf("# Effective configuration\n")
	ew.printf("# Source: %s\n\n", source)

	ew.printf("server_url       = %q\n", cfg.ServerURL)
	ew.printf("user_agent       = %q\n", cfg.UserAgent)
	ew.printf("state_dir        = %q\n", cfg.StateDir)
	ew.printf("\n")
	ew.printf("sync_debounce    = %q\n", cfg.SyncDebounce)
	ew.printf("spool_path       = %q\n", cfg.SpoolPath)
	ew.printf("catalog_ttl      = %q\n", cfg.CatalogTTL)
	ew.printf("shutdown_timeout = %q\n", cfg.ShutdownTimeout)
	ew.printf("\n")
	ew.printf("log_level        = %q\n", cfg.LogLevel)
	ew.printf("log_format       = %q\n", cfg.LogFormat)
	ew.printf("\n")
	ew.printf("connect_timeout  = %q\n", cfg.ConnectTimeout)
	ew.printf("request_timeout  = %q\n", cfg.RequestTimeout)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
