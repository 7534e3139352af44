// Package prompt provides the small interactive prompts of the CLI.
//
//   - [Confirm]: yes/no, defaulting to no
//   - [TextInput]: one line of text, optionally prefilled
//   - [Select]: one choice from a filterable list
//
// All prompts fail with [ErrNotInteractive] when stdin or stderr is not
// a terminal.
package prompt

import "errors"

// ErrNotInteractive is returned when a prompt cannot be shown.
var ErrNotInteractive = errors.New("prompt needs an interactive terminal")
