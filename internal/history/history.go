// Package history remembers the last active file of each workspace, so
// commands that take an optional FILE can fall back to it.
package history

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/REZICS/PolyPress/internal/storage"
)

// History maps a workspace root to its last active file.
type History struct {
	Active map[string]string `json:"active"`
}

// DefaultPath returns the path to ~/.polypress/history.json.
func DefaultPath() (string, error) {
	dir, err := storage.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.json"), nil
}

// Load reads the history from disk.
func Load(path string) (*History, error) {
	var h History
	if err := storage.LoadJSON(path, &h); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &History{Active: map[string]string{}}, nil
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		// Corrupted - start fresh
		return &History{Active: map[string]string{}}, nil
	}
	if h.Active == nil {
		h.Active = map[string]string{}
	}
	return &h, nil
}

// RecordActive saves file as the active file of root.
// An empty file clears the entry.
func RecordActive(path, root, file string) error {
	return storage.Update(path, func(h *History) error {
		if h.Active == nil {
			h.Active = map[string]string{}
		}
		if file == "" {
			delete(h.Active, root)
			return nil
		}
		h.Active[root] = file
		return nil
	})
}

// ActiveFile returns the last active file of root, or "" if none was
// recorded or the file no longer exists.
func ActiveFile(path, root string) (string, error) {
	h, err := Load(path)
	if err != nil {
		return "", err
	}
	file := h.Active[root]
	if file == "" {
		return "", nil
	}
	if _, err := os.Stat(file); err != nil {
		return "", nil
	}
	return file, nil
}
