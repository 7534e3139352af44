package publication

import "errors"

// ErrRequired matches every blank-argument error.
var ErrRequired = errors.New("required argument is blank")

// ErrNothingToUpdate is returned by the sequencer when no record has a
// remote URL or no file is selected.
var ErrNothingToUpdate = errors.New("nothing to update")

// ArgumentError names a required argument that was blank.
type ArgumentError struct {
	Name string
}

func (e *ArgumentError) Error() string { return e.Name + " is required" }

// Is reports ErrRequired.
func (e *ArgumentError) Is(target error) bool { return target == ErrRequired }

func required(name string) error { return &ArgumentError{Name: name} }
