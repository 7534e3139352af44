// Package workspace lists workspace directories as bounded, ordered trees
// and resolves user supplied paths against the file system.
//
// # Ordering
//
// Children of a directory node list directories first, then files; each
// group is sorted by locale-aware name comparison.
//
// # Bounds
//
// A listing stops descending at MaxDepth and stops emitting nodes once
// MaxEntries nodes (the root included) have been produced. A directory
// that cannot be read is returned with no children.
//
// # Containment
//
// Only regular files and directories are listed. Symlinks and special
// files are skipped, and any child whose absolute path is not inside the
// root is discarded.
package workspace
