// Package storage provides the polypress state directory, atomic JSON
// files and a cross-process file lock for the files kept there.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StateDirEnv overrides the state directory location.
const StateDirEnv = "POLYPRESS_STATE_DIR"

// StateDir returns the path to ~/.polypress/ (or $POLYPRESS_STATE_DIR),
// creating it if needed.
func StateDir() (string, error) {
	dir := os.Getenv(StateDirEnv)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".polypress")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	return dir, nil
}

// SaveJSON atomically writes data as JSON to the specified path.
// It ensures the parent directory exists, writes to a temp file,
// then renames to the final path.
func SaveJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tempPath := path + ".tmp"

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, jsonData, 0o600); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// LoadJSON reads JSON from the specified path into dest.
// Returns os.ErrNotExist if file doesn't exist (caller should handle).
func LoadJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Update loads path into dest under an exclusive lock, applies fn and
// saves the result. A missing file leaves dest untouched before fn runs.
func Update[T any](path string, fn func(*T) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	lock := NewFileLock(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	var v T
	if err := LoadJSON(path, &v); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := fn(&v); err != nil {
		return err
	}
	return SaveJSON(path, &v)
}
