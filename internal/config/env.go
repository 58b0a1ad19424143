package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "EDUMENTOR_CONFIG"
	EnvServerURL = "EDUMENTOR_SERVER_URL"
	EnvStateDir  = "EDUMENTOR_STATE_DIR"
	EnvLogLevel  = "EDUMENTOR_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
// These are resolved by ReadEnvOverrides and made available to callers.
type EnvOverrides struct {
	ConfigPath string // EDUMENTOR_CONFIG: override config file path
	ServerURL  string // EDUMENTOR_SERVER_URL: backend root URL
	StateDir   string // EDUMENTOR_STATE_DIR: state directory override
	LogLevel   string // EDUMENTOR_LOG_LEVEL: log verbosity override
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		ServerURL:  os.Getenv(EnvServerURL),
		StateDir:   os.Getenv(EnvStateDir),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}
