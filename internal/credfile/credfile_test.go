package credfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileNotFound(t *testing.T) {
	cred, err := Load("/nonexistent/path/credential.json")
	assert.Empty(t, cred)
	assert.NoError(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	require.NoError(t, Save(path, "tok-abc-123"))

	cred, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc-123", cred)
}

func TestSave_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	require.NoError(t, Save(path, "old-token"))
	require.NoError(t, Save(path, "new-token"))

	cred, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "new-token", cred)
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "sub", "dir", "credential.json")

	require.NoError(t, Save(nested, "tok"))

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	require.NoError(t, Save(path, "tok"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_RefusesEmptyCredential(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	err := Save(path, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to save empty credential")
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	require.NoError(t, Save(path, "tok"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "credential.json", entries[0].Name())
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), 0o600))

	cred, err := Load(path)
	assert.Empty(t, cred)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestLoad_EmptyCredential(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"credential":""}`), 0o600))

	cred, err := Load(path)
	assert.Empty(t, cred)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty credential")
}

func TestClear_RemovesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	require.NoError(t, Save(path, "tok"))
	require.NoError(t, Clear(path))

	cred, err := Load(path)
	assert.Empty(t, cred)
	assert.NoError(t, err)
}

func TestClear_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	// Clearing a file that never existed succeeds.
	assert.NoError(t, Clear(path))

	require.NoError(t, Save(path, "tok"))
	require.NoError(t, Clear(path))
	assert.NoError(t, Clear(path))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	assert.False(t, Exists(path))
	require.NoError(t, Save(path, "tok"))
	assert.True(t, Exists(path))
}

func TestStore_BindsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")

	store := NewStore(path)
	assert.Equal(t, path, store.Path())

	require.NoError(t, store.Save("tok-1"))

	cred, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cred)

	require.NoError(t, store.Clear())

	cred, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, cred)
}
