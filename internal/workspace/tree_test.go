package workspace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

// mkTree creates files and directories under root. Entries ending in "/"
// are directories.
func mkTree(t *testing.T, root string, entries ...string) {
	t.Helper()
	for _, e := range entries {
		p := filepath.Join(root, filepath.FromSlash(e))
		if strings.HasSuffix(e, "/") {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(e), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func childNames(n *Node) []string {
	names := make([]string, len(n.Children))
	for i, c := range n.Children {
		names[i] = c.Name
	}
	return names
}

func TestBuildTree_Example(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkTree(t, root, "a.txt", "sub/b.txt")

	tree, err := BuildTree(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	if tree.ID != root || tree.Path != root || tree.Name != root || tree.Kind != KindDir {
		t.Errorf("root node = %+v", tree)
	}
	if got := childNames(tree); !slices.Equal(got, []string{"sub", "a.txt"}) {
		t.Fatalf("root children = %v, want [sub a.txt]", got)
	}

	sub := tree.Children[0]
	if sub.Kind != KindDir || sub.Path != filepath.Join(root, "sub") {
		t.Errorf("sub = %+v", sub)
	}
	if got := childNames(sub); !slices.Equal(got, []string{"b.txt"}) {
		t.Errorf("sub children = %v", got)
	}
	file := tree.Children[1]
	if file.Kind != KindFile || file.Children != nil {
		t.Errorf("a.txt = %+v", file)
	}
}

func TestBuildTree_Ordering(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkTree(t, root, "zeta.txt", "Alpha.md", "beta.txt", "drafts/", "Archive/", "notes/")

	tree, err := BuildTree(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Archive", "drafts", "notes", "Alpha.md", "beta.txt", "zeta.txt"}
	if got := childNames(tree); !slices.Equal(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}

	seenFile := false
	for _, c := range tree.Children {
		if c.Kind == KindFile {
			seenFile = true
		} else if seenFile {
			t.Errorf("directory %q listed after a file", c.Name)
		}
	}
}

func TestBuildTree_MaxDepth(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkTree(t, root, "a/b/c/deep.txt", "top.txt")

	t.Run("zero", func(t *testing.T) {
		tree, err := BuildTree(context.Background(), root, Options{MaxDepth: intPtr(0)})
		if err != nil {
			t.Fatal(err)
		}
		if tree.Children == nil || len(tree.Children) != 0 {
			t.Errorf("children = %v, want empty non-nil", tree.Children)
		}
	})

	t.Run("negative clamps to zero", func(t *testing.T) {
		tree, _ := BuildTree(context.Background(), root, Options{MaxDepth: intPtr(-3)})
		if len(tree.Children) != 0 {
			t.Errorf("children = %v, want empty", childNames(tree))
		}
	})

	t.Run("two", func(t *testing.T) {
		tree, _ := BuildTree(context.Background(), root, Options{MaxDepth: intPtr(2)})
		b := FindByPath(tree, filepath.Join(root, "a", "b"))
		if b == nil {
			t.Fatal("a/b missing")
		}
		if b.Children == nil || len(b.Children) != 0 {
			t.Errorf("a/b children = %v, want empty at depth bound", childNames(b))
		}
	})
}

func TestBuildTree_MaxEntries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var entries []string
	for _, d := range []string{"d1", "d2", "d3"} {
		for _, f := range []string{"f1", "f2", "f3", "f4"} {
			entries = append(entries, d+"/"+f)
		}
	}
	mkTree(t, root, entries...)

	for _, n := range []int{1, 2, 5, 9, 100} {
		tree, err := BuildTree(context.Background(), root, Options{MaxEntries: intPtr(n)})
		if err != nil {
			t.Fatal(err)
		}
		if got := Count(tree); got > n {
			t.Errorf("maxEntries=%d: %d nodes", n, got)
		}
	}

	tree, _ := BuildTree(context.Background(), root, Options{MaxEntries: intPtr(0)})
	if got := Count(tree); got != 1 {
		t.Errorf("maxEntries=0 clamps to 1, got %d nodes", got)
	}
}

func TestBuildTree_SymlinkEscape(t *testing.T) {
	t.Parallel()

	outside := t.TempDir()
	mkTree(t, outside, "secret.txt", "secret-dir/x.txt")

	root := t.TempDir()
	mkTree(t, root, "inside.txt")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "secret-dir"), filepath.Join(root, "linkdir")); err != nil {
		t.Fatal(err)
	}

	tree, err := BuildTree(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	Walk(tree, func(n *Node) bool {
		if !IsInside(root, n.Path) {
			t.Errorf("node %q escapes root", n.Path)
		}
		if n != tree && strings.Contains(n.Name, "link") {
			t.Errorf("symlink %q should be skipped", n.Name)
		}
		return true
	})
}

func TestBuildTree_UnreadableDir(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	root := t.TempDir()
	mkTree(t, root, "locked/hidden.txt", "open/visible.txt")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	tree, err := BuildTree(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("BuildTree should not fail: %v", err)
	}
	n := FindByPath(tree, locked)
	if n == nil || len(n.Children) != 0 {
		t.Errorf("locked dir = %+v, want present with no children", n)
	}
	if FindByPath(tree, filepath.Join(root, "open", "visible.txt")) == nil {
		t.Error("sibling directory should still be listed")
	}
}

func TestBuildTree_BlankRoot(t *testing.T) {
	t.Parallel()

	if _, err := BuildTree(context.Background(), "  ", Options{}); err != ErrRootRequired {
		t.Errorf("error = %v, want ErrRootRequired", err)
	}
}

func TestNode_JSON(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkTree(t, root, "empty/", "f.txt")

	tree, _ := BuildTree(context.Background(), root, Options{})
	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Children []map[string]any `json:"children"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Children) != 2 {
		t.Fatalf("children = %v", decoded.Children)
	}
	if _, ok := decoded.Children[0]["children"]; !ok {
		t.Error("empty directory should serialize an empty children list")
	}
	if _, ok := decoded.Children[1]["children"]; ok {
		t.Error("file should not serialize children")
	}
}

func TestIsInside(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parent, candidate string
		want              bool
	}{
		{"/ws", "/ws", true},
		{"/ws", "/ws/a.txt", true},
		{"/ws", "/ws/sub/../a.txt", true},
		{"/ws", "/ws-other/a.txt", false},
		{"/ws", "/ws/../etc/passwd", false},
		{"/", "/anything", true},
	}
	for _, tt := range tests {
		if got := IsInside(tt.parent, tt.candidate); got != tt.want {
			t.Errorf("IsInside(%q, %q) = %v, want %v", tt.parent, tt.candidate, got, tt.want)
		}
	}
}
