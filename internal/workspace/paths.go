package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrPickerUnavailable is returned when no interactive picker can run,
// e.g. without a terminal.
var ErrPickerUnavailable = errors.New("directory picker unavailable")

// DirectoryPicker asks the user for a directory.
// ok is false when the user cancels.
type DirectoryPicker interface {
	Pick(ctx context.Context, start string) (dir string, ok bool, err error)
}

// WorkingDirectory returns the process working directory.
func WorkingDirectory() (string, error) {
	return os.Getwd()
}

// CoerceToDir resolves raw to a directory: a directory resolves to
// itself, a file to its parent. ok is false for blank or missing paths.
func CoerceToDir(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false
	}
	switch {
	case info.IsDir():
		return abs, true
	case info.Mode().IsRegular():
		return filepath.Dir(abs), true
	default:
		return "", false
	}
}

// ResolveDropped resolves dropped paths to absolute paths, in order and
// without duplicates. Entries that are blank or do not exist are omitted.
func ResolveDropped(paths []string) []string {
	resolved := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, err := os.Lstat(abs); err != nil {
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		resolved = append(resolved, abs)
	}
	return resolved
}
