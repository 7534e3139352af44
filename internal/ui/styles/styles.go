// Package styles provides the shared colors, styles and status symbols
// of the terminal output.
package styles

import (
	"image/color"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"

	"github.com/REZICS/PolyPress/internal/config"
)

// Theme defines the color palette for UI components.
type Theme struct {
	Primary color.Color // borders, titles
	Accent  color.Color // selected items, fuzzy matches
	Success color.Color
	Error   color.Color
	Muted   color.Color // never submitted, hints
	Normal  color.Color
	Warning color.Color // linked but not yet submitted
}

var (
	// DefaultTheme is the dark variant of the default theme.
	DefaultTheme = Theme{
		Primary: lipgloss.Color("62"),
		Accent:  lipgloss.Color("212"),
		Success: lipgloss.Color("82"),
		Error:   lipgloss.Color("196"),
		Muted:   lipgloss.Color("240"),
		Normal:  lipgloss.Color("252"),
		Warning: lipgloss.Color("214"),
	}

	// DefaultLightTheme is the light variant of the default theme.
	DefaultLightTheme = Theme{
		Primary: lipgloss.Color("#076678"),
		Accent:  lipgloss.Color("#8f3f71"),
		Success: lipgloss.Color("#79740e"),
		Error:   lipgloss.Color("#9d0006"),
		Muted:   lipgloss.Color("#928374"),
		Normal:  lipgloss.Color("#3c3836"),
		Warning: lipgloss.Color("#b57614"),
	}

	// NoneTheme keeps terminal default colors. Bold and underline still apply.
	NoneTheme = Theme{
		Primary: lipgloss.NoColor{},
		Accent:  lipgloss.NoColor{},
		Success: lipgloss.NoColor{},
		Error:   lipgloss.NoColor{},
		Muted:   lipgloss.NoColor{},
		Normal:  lipgloss.NoColor{},
		Warning: lipgloss.NoColor{},
	}
)

// Styles derived from the current theme. Init replaces them.
var (
	PrimaryStyle   = lipgloss.NewStyle()
	AccentStyle    = lipgloss.NewStyle()
	SuccessStyle   = lipgloss.NewStyle()
	ErrorStyle     = lipgloss.NewStyle()
	MutedStyle     = lipgloss.NewStyle()
	NormalStyle    = lipgloss.NewStyle()
	WarningStyle   = lipgloss.NewStyle()
	HighlightStyle = lipgloss.NewStyle()
	Bold           = lipgloss.NewStyle().Bold(true)
)

var current = DefaultTheme

func init() {
	apply(DefaultTheme)
}

// Current returns the active theme.
func Current() Theme {
	return current
}

// Init selects the theme from config. profile is the detected color
// profile of the output; without color support the none theme is used
// whatever the config says.
func Init(cfg config.UIConfig, profile colorprofile.Profile) {
	SetNerdfont(cfg.Nerdfont)
	current = selectTheme(cfg, profile, func() bool {
		return lipgloss.HasDarkBackground(os.Stdin, os.Stderr)
	})
	apply(current)
}

func selectTheme(cfg config.UIConfig, profile colorprofile.Profile, dark func() bool) Theme {
	if cfg.Theme == "none" || profile == colorprofile.NoTTY || profile == colorprofile.Ascii {
		return NoneTheme
	}
	switch cfg.Mode {
	case "light":
		return DefaultLightTheme
	case "dark":
		return DefaultTheme
	}
	if dark() {
		return DefaultTheme
	}
	return DefaultLightTheme
}

func apply(t Theme) {
	PrimaryStyle = lipgloss.NewStyle().Foreground(t.Primary)
	AccentStyle = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(t.Success)
	ErrorStyle = lipgloss.NewStyle().Foreground(t.Error)
	MutedStyle = lipgloss.NewStyle().Foreground(t.Muted)
	NormalStyle = lipgloss.NewStyle().Foreground(t.Normal)
	WarningStyle = lipgloss.NewStyle().Foreground(t.Warning)
	HighlightStyle = lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Underline(true)
}
