// Package credfile handles reading and writing the credential file. The file
// stores exactly one opaque bearer credential, issued by the backend at login
// and presented on every authenticated request. This is a leaf package
// imported by both session/ and the CLI wiring to avoid duplication and
// import cycles.
package credfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the state directory.
const DirPerms = 0o700

// File is the on-disk format for credential files.
type File struct {
	Credential string `json:"credential"`
}

// Load reads the saved credential from disk. Returns ("", nil) if the file
// does not exist; a first run with no stored session is not an error.
// A file that exists but holds no credential is corrupt and reported as an
// error; callers treat that as "no credential" and purge the file.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("credfile: reading %s: %w", path, err)
	}

	var cf File
	if err := json.Unmarshal(data, &cf); err != nil {
		return "", fmt.Errorf("credfile: decoding %s: %w", path, err)
	}

	if cf.Credential == "" {
		return "", fmt.Errorf("credfile: %s holds an empty credential (re-login required)", path)
	}

	return cf.Credential, nil
}

// Save writes the credential file atomically (write-to-temp + rename) with
// 0600 permissions. Never logs credential values.
func Save(path, credential string) error {
	if credential == "" {
		return errors.New("credfile: refusing to save empty credential")
	}

	data, err := json.MarshalIndent(File{Credential: credential}, "", "  ")
	if err != nil {
		return fmt.Errorf("credfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("credfile: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".credential-*.tmp")
	if err != nil {
		return fmt.Errorf("credfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	// Clean up temp file on any error path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close
	// and rename cannot leave an empty or partial file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("credfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Clear removes the credential file. Removing a file that does not exist is
// success: logout must always succeed locally.
func Clear(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("credfile: removing %s: %w", path, err)
}

// Exists reports whether a credential file is present, without reading it.
func Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// Store binds the package operations to one credential path, for callers
// that want an injectable handle instead of free functions.
type Store struct {
	path string
}

// NewStore returns a Store for the credential file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the saved credential. See Load.
func (s *Store) Load() (string, error) {
	return Load(s.path)
}

// Save persists the credential. See Save.
func (s *Store) Save(credential string) error {
	return Save(s.path, credential)
}

// Clear removes the credential file. See Clear.
func (s *Store) Clear() error {
	return Clear(s.path)
}

// Path returns the credential file path.
func (s *Store) Path() string {
	return s.path
}
