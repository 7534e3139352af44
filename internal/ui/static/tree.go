package static

import (
	"charm.land/lipgloss/v2/tree"

	"github.com/REZICS/PolyPress/internal/ui/styles"
	"github.com/REZICS/PolyPress/internal/workspace"
)

// RenderTree renders a workspace listing. Directories are styled with
// the primary color and end in a slash.
func RenderTree(root *workspace.Node) string {
	if root == nil {
		return ""
	}
	return buildTree(root).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(styles.MutedStyle).
		String() + "\n"
}

func buildTree(n *workspace.Node) *tree.Tree {
	t := tree.Root(label(n))
	for _, c := range n.Children {
		if c.IsDir() && len(c.Children) > 0 {
			t.Child(buildTree(c))
			continue
		}
		t.Child(label(c))
	}
	return t
}

func label(n *workspace.Node) string {
	if n.IsDir() {
		return styles.PrimaryStyle.Render(n.Name + "/")
	}
	return n.Name
}
