// Package registry manages the workspace registry at ~/.polypress/workspaces.json.
//
// The registry remembers the current workspace root and the most recently
// opened roots, newest first.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/REZICS/PolyPress/internal/storage"
)

// MaxRecent bounds the recent workspace list.
const MaxRecent = 30

// Workspace is a previously opened workspace root.
type Workspace struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	LastOpened time.Time `json:"last_opened"`
}

// Registry holds the current workspace and the recent list.
type Registry struct {
	Current    string      `json:"current,omitempty"`
	Workspaces []Workspace `json:"workspaces"`
}

// DefaultPath returns the path to ~/.polypress/workspaces.json.
func DefaultPath() (string, error) {
	dir, err := storage.StateDir()
	if err != nil {
		return "", fmt.Errorf("state directory: %w", err)
	}
	return filepath.Join(dir, "workspaces.json"), nil
}

// Load reads the registry from path.
// Returns an empty registry if the file doesn't exist.
func Load(path string) (*Registry, error) {
	var reg Registry
	if err := storage.LoadJSON(path, &reg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Registry{Workspaces: []Workspace{}}, nil
		}
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if reg.Workspaces == nil {
		reg.Workspaces = []Workspace{}
	}
	return &reg, nil
}

// Save writes the registry to path atomically.
func (r *Registry) Save(path string) error {
	if err := storage.SaveJSON(path, r); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

// Open marks root as the current workspace and moves it to the front of
// the recent list. Blank roots are rejected.
func (r *Registry) Open(root string, now time.Time) error {
	root = strings.TrimSpace(root)
	if root == "" {
		return errors.New("workspace root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	r.Workspaces = slices.DeleteFunc(r.Workspaces, func(w Workspace) bool {
		return w.Path == abs
	})
	r.Workspaces = slices.Insert(r.Workspaces, 0, Workspace{
		Path:       abs,
		Name:       filepath.Base(abs),
		LastOpened: now,
	})
	if len(r.Workspaces) > MaxRecent {
		r.Workspaces = r.Workspaces[:MaxRecent]
	}
	r.Current = abs
	return nil
}

// Remove drops a workspace by name or path. Clears Current if it matched.
func (r *Registry) Remove(ref string) error {
	w, err := r.Find(ref)
	if err != nil {
		return err
	}
	path := w.Path
	r.Workspaces = slices.DeleteFunc(r.Workspaces, func(w Workspace) bool {
		return w.Path == path
	})
	if r.Current == path {
		r.Current = ""
	}
	return nil
}

// Clear forgets all recent workspaces, keeping Current.
func (r *Registry) Clear() {
	r.Workspaces = []Workspace{}
}

// Find looks up a workspace by path, then by name.
// A name shared by several workspaces resolves to the most recent one.
func (r *Registry) Find(ref string) (*Workspace, error) {
	if abs, err := filepath.Abs(ref); err == nil {
		for i := range r.Workspaces {
			if r.Workspaces[i].Path == abs {
				return &r.Workspaces[i], nil
			}
		}
	}
	for i := range r.Workspaces {
		if r.Workspaces[i].Name == ref {
			return &r.Workspaces[i], nil
		}
	}
	return nil, fmt.Errorf("workspace not found: %s", ref)
}

// Paths returns the recent workspace roots, newest first.
func (r *Registry) Paths() []string {
	paths := make([]string, len(r.Workspaces))
	for i, w := range r.Workspaces {
		paths[i] = w.Path
	}
	return paths
}
