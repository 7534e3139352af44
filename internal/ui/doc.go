// Package ui holds the terminal plumbing shared by the interactive
// components: TTY detection and program setup.
//
// The components themselves live in subpackages:
//
//   - styles: theme colors and status symbols
//   - static: tables and trees for non-interactive output
//   - progress: spinner and bulk progress bar
//   - prompt: confirm, text and select prompts
//   - picker: fuzzy directory picker
//
// Everything interactive renders to stderr so stdout stays clean for
// piping, e.g. cd "$(polypress open -i)".
package ui
