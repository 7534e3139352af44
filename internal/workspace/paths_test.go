package workspace

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestCoerceToDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkTree(t, root, "book/ch1.txt")

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"directory", filepath.Join(root, "book"), filepath.Join(root, "book"), true},
		{"file resolves to parent", filepath.Join(root, "book", "ch1.txt"), filepath.Join(root, "book"), true},
		{"trims whitespace", "  " + root + "  ", root, true},
		{"blank", "   ", "", false},
		{"missing", filepath.Join(root, "nope"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceToDir(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CoerceToDir(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveDropped(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkTree(t, root, "a.txt", "b.txt")
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")

	got := ResolveDropped([]string{b, "", filepath.Join(root, "gone.txt"), a, b})
	want := []string{b, a}
	if !slices.Equal(got, want) {
		t.Errorf("ResolveDropped = %v, want %v", got, want)
	}
}

func TestWorkingDirectory(t *testing.T) {
	t.Parallel()

	got, err := WorkingDirectory()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := os.Getwd()
	if got != want {
		t.Errorf("WorkingDirectory() = %q, want %q", got, want)
	}
}
