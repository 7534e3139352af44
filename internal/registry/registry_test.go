package registry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestRegistryOpen(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &Registry{}

	for _, root := range []string{"/ws/a", "/ws/b", "/ws/a"} {
		if err := r.Open(root, now); err != nil {
			t.Fatalf("Open(%q) error = %v", root, err)
		}
	}

	if r.Current != "/ws/a" {
		t.Errorf("Current = %q, want /ws/a", r.Current)
	}
	got := r.Paths()
	want := []string{"/ws/a", "/ws/b"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
	if r.Workspaces[0].Name != "a" {
		t.Errorf("Name = %q, want a", r.Workspaces[0].Name)
	}
}

func TestRegistryOpen_Blank(t *testing.T) {
	t.Parallel()

	r := &Registry{}
	if err := r.Open("   ", time.Now()); err == nil {
		t.Fatal("expected error for blank root")
	}
}

func TestRegistryOpen_Bounded(t *testing.T) {
	t.Parallel()

	r := &Registry{}
	for i := range MaxRecent + 5 {
		if err := r.Open(fmt.Sprintf("/ws/%02d", i), time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	if len(r.Workspaces) != MaxRecent {
		t.Fatalf("len = %d, want %d", len(r.Workspaces), MaxRecent)
	}
	if r.Workspaces[0].Path != fmt.Sprintf("/ws/%02d", MaxRecent+4) {
		t.Errorf("newest = %q", r.Workspaces[0].Path)
	}
}

func TestRegistryFindRemove(t *testing.T) {
	t.Parallel()

	r := &Registry{}
	_ = r.Open("/ws/novel", time.Now())
	_ = r.Open("/ws/poems", time.Now())

	w, err := r.Find("novel")
	if err != nil {
		t.Fatalf("Find by name: %v", err)
	}
	if w.Path != "/ws/novel" {
		t.Errorf("Find(novel) = %q", w.Path)
	}

	if err := r.Remove("/ws/poems"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r.Current != "" {
		t.Errorf("Current = %q, want cleared", r.Current)
	}
	if _, err := r.Find("poems"); err == nil {
		t.Error("expected removed workspace to be gone")
	}
	if err := r.Remove("missing"); err == nil {
		t.Error("expected error removing unknown workspace")
	}
}

func TestRegistrySaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "workspaces.json")

	empty, err := Load(path)
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if len(empty.Workspaces) != 0 || empty.Current != "" {
		t.Errorf("expected empty registry, got %+v", empty)
	}

	r := &Registry{}
	_ = r.Open("/ws/a", time.Now())
	if err := r.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Current != "/ws/a" || len(loaded.Workspaces) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}
}
