package config

import "time"

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and are chosen so the client works
// against a local development backend without any config file.
const (
	defaultServerURL       = "http://localhost:8000"
	defaultUserAgent       = "edumentor-go"
	defaultSyncDebounce    = 2 * time.Second
	defaultCatalogTTL      = 15 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultConnectTimeout  = 10 * time.Second
	defaultRequestTimeout  = 30 * time.Second
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			ServerURL: defaultServerURL,
			UserAgent: defaultUserAgent,
		},
		SyncConfig: SyncConfig{
			SyncDebounce:    Duration(defaultSyncDebounce),
			CatalogTTL:      Duration(defaultCatalogTTL),
			ShutdownTimeout: Duration(defaultShutdownTimeout),
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		NetworkConfig: NetworkConfig{
			ConnectTimeout: Duration(defaultConnectTimeout),
			RequestTimeout: Duration(defaultRequestTimeout),
		},
	}
}
