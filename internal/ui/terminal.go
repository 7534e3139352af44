package ui

import (
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/mattn/go-isatty"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interactive reports whether both stdin and stderr are terminals.
func Interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stderr)
}

// StderrIsTerminal reports whether progress output can be animated.
func StderrIsTerminal() bool {
	return isTerminal(os.Stderr)
}

// Profile detects the color profile of stderr, honoring NO_COLOR and
// friends.
func Profile() colorprofile.Profile {
	return colorprofile.Detect(os.Stderr, os.Environ())
}

// NewProgram returns a program rendering to stderr with the detected
// color profile.
func NewProgram(model tea.Model, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{
		tea.WithOutput(os.Stderr),
		tea.WithColorProfile(Profile()),
	}, opts...)
	return tea.NewProgram(model, opts...)
}
