package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/REZICS/PolyPress/internal/locale"
	"github.com/REZICS/PolyPress/internal/log"
)

// Kind distinguishes files from directories.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

// Default listing bounds.
const (
	DefaultMaxDepth   = 50
	DefaultMaxEntries = 100_000
)

// yieldEvery is the number of emitted nodes between scheduler yields.
const yieldEvery = 200

// Node is one entry of a workspace listing.
// Children is non-nil for directories and nil for files.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Kind     Kind    `json:"kind"`
	Children []*Node `json:"children,omitzero"`
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.Kind == KindDir }

// Options bounds a listing. Nil fields take the defaults.
type Options struct {
	MaxDepth   *int
	MaxEntries *int
}

func (o Options) limits() (depth, entries int) {
	depth, entries = DefaultMaxDepth, DefaultMaxEntries
	if o.MaxDepth != nil {
		depth = max(*o.MaxDepth, 0)
	}
	if o.MaxEntries != nil {
		entries = max(*o.MaxEntries, 1)
	}
	return depth, entries
}

// ErrRootRequired is returned for a blank root path.
var ErrRootRequired = errors.New("workspace root is required")

type walker struct {
	root       string
	maxDepth   int
	maxEntries int
	emitted    int
	logger     *log.Logger
	collator   *locale.Collator
}

// BuildTree lists root recursively. The root node carries the absolute
// root path as its name. Cancelling ctx stops the walk at the next yield
// point and returns what was collected so far.
func BuildTree(ctx context.Context, root string, opts Options) (*Node, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, ErrRootRequired
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	depth, entries := opts.limits()
	w := &walker{
		root:       abs,
		maxDepth:   depth,
		maxEntries: entries,
		emitted:    1,
		logger:     log.FromContext(ctx),
		collator:   locale.New(),
	}

	node := &Node{ID: abs, Name: abs, Path: abs, Kind: KindDir}
	node.Children = w.walk(ctx, abs, 0)

	w.logger.Debug("workspace tree built", "root", abs, "nodes", w.emitted)
	return node, nil
}

func (w *walker) walk(ctx context.Context, dir string, depth int) []*Node {
	children := []*Node{}
	if depth >= w.maxDepth {
		return children
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Debug("skipping unreadable directory", "path", dir, "error", err)
		return children
	}

	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		if a.IsDir() != b.IsDir() {
			if a.IsDir() {
				return -1
			}
			return 1
		}
		return w.collator.Compare(a.Name(), b.Name())
	})

	for _, entry := range entries {
		if w.emitted >= w.maxEntries || ctx.Err() != nil {
			break
		}

		mode := entry.Type()
		if !mode.IsDir() && !mode.IsRegular() {
			continue
		}

		childPath := filepath.Join(dir, entry.Name())
		if !IsInside(w.root, childPath) {
			w.logger.Debug("skipping entry outside root", "path", childPath)
			continue
		}

		w.emitted++
		if w.emitted%yieldEvery == 0 {
			runtime.Gosched()
		}

		child := &Node{ID: childPath, Name: entry.Name(), Path: childPath, Kind: KindFile}
		if mode.IsDir() {
			child.Kind = KindDir
			child.Children = w.walk(ctx, childPath, depth+1)
		}
		children = append(children, child)
	}

	return children
}

// IsInside reports whether candidate is parent or lies below it.
// Both paths are compared textually after cleaning.
func IsInside(parent, candidate string) bool {
	parent = filepath.Clean(parent)
	candidate = filepath.Clean(candidate)
	if candidate == parent {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(candidate, prefix)
}

// Count returns the number of nodes in the tree, root included.
func Count(n *Node) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += Count(c)
	}
	return count
}

// FindByPath returns the node at path, or nil.
func FindByPath(n *Node, path string) *Node {
	if n == nil {
		return nil
	}
	if n.Path == path {
		return n
	}
	for _, c := range n.Children {
		if found := FindByPath(c, path); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits nodes depth-first in listing order until fn returns false.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}
