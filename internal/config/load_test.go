package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	tomlContent := `
server_url = "https://edu.example.com"
user_agent = "edumentor-go/test"
state_dir = "/tmp/edumentor-test"

sync_debounce = "1500ms"
spool_path = "/tmp/events.jsonl"
catalog_ttl = "30m"
shutdown_timeout = "5s"

log_level = "debug"
log_format = "json"

connect_timeout = "5s"
request_timeout = "45s"
`

	path := writeTestConfig(t, tomlContent)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://edu.example.com", cfg.ServerURL)
	assert.Equal(t, "edumentor-go/test", cfg.UserAgent)
	assert.Equal(t, "/tmp/edumentor-test", cfg.StateDir)
	assert.Equal(t, 1500*time.Millisecond, cfg.SyncDebounce.Std())
	assert.Equal(t, "/tmp/events.jsonl", cfg.SpoolPath)
	assert.Equal(t, 30*time.Minute, cfg.CatalogTTL.Std())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Std())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout.Std())
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout.Std())
	assert.Equal(t, path, cfg.Path)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `server_url = "http://10.0.0.5:8000"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8000", cfg.ServerURL)
	assert.Equal(t, defaultUserAgent, cfg.UserAgent)
	assert.Equal(t, defaultSyncDebounce, cfg.SyncDebounce.Std())
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
	assert.Equal(t, defaultRequestTimeout, cfg.RequestTimeout.Std())
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeTestConfig(t, `sync_debounce = "2 bananas"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, defaultServerURL, cfg.ServerURL)
	assert.Empty(t, cfg.Path)
}

func TestDefaultConfig_Validates(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestResolve_PrecedenceChain(t *testing.T) {
	path := writeTestConfig(t, `
server_url = "http://from-file:8000"
log_level = "warn"
`)

	override := "http://from-cli:8000"
	cfg, err := Resolve(
		EnvOverrides{ConfigPath: path, ServerURL: "http://from-env:8000", LogLevel: "debug"},
		CLIOverrides{ServerURL: &override},
	)
	require.NoError(t, err)

	// CLI beats env beats file; untouched fields fall through to env/file.
	assert.Equal(t, "http://from-cli:8000", cfg.ServerURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolve_DerivedPaths(t *testing.T) {
	stateDir := t.TempDir()
	cfg, err := Resolve(EnvOverrides{StateDir: stateDir}, CLIOverrides{
		// Point at a nonexistent config file so host configs never leak in.
		ConfigPath: filepath.Join(t.TempDir(), "absent.toml"),
	})
	require.NoError(t, err)

	assert.Equal(t, stateDir, cfg.StateDir)
	assert.Equal(t, filepath.Join(stateDir, SpoolFileName), cfg.SpoolPath)
	assert.Equal(t, filepath.Join(stateDir, CredentialFileName), CredentialPath(cfg.StateDir))
	assert.Equal(t, filepath.Join(stateDir, CatalogFileName), CatalogPath(cfg.StateDir))
}

func TestResolve_InvalidFileSurfacesError(t *testing.T) {
	path := writeTestConfig(t, `server_url = "not a url at all"`)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_url")
}
