package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/REZICS/PolyPress/internal/publication"
)

// Validate checks value ranges and program tables.
func (c *Config) Validate() error {
	if c.Tree.MaxDepth < 0 {
		return fmt.Errorf("invalid tree.max_depth %d: must be >= 0", c.Tree.MaxDepth)
	}
	if c.Tree.MaxEntries < 1 {
		return fmt.Errorf("invalid tree.max_entries %d: must be >= 1", c.Tree.MaxEntries)
	}
	if c.Read.MaxBytes < 0 {
		return fmt.Errorf("invalid read.max_bytes %d: must be >= 0", c.Read.MaxBytes)
	}
	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		return fmt.Errorf("invalid browser size %dx%d: must be positive", c.Browser.Width, c.Browser.Height)
	}
	if c.Bulk.Pause < 0 {
		return fmt.Errorf("invalid bulk.pause %s: must not be negative", c.Bulk.Pause)
	}
	if c.Session.Debounce < 0 {
		return fmt.Errorf("invalid session.debounce %s: must not be negative", c.Session.Debounce)
	}
	if c.UI.Theme != "" && !slices.Contains(ValidThemeNames, c.UI.Theme) {
		return fmt.Errorf("invalid ui.theme %q: must be %s", c.UI.Theme, formatOptions(ValidThemeNames))
	}
	if c.UI.Mode != "" && !slices.Contains(ValidThemeModes, c.UI.Mode) {
		return fmt.Errorf("invalid ui.mode %q: must be %s", c.UI.Mode, formatOptions(ValidThemeModes))
	}
	if err := validateHooks(c.Hooks); err != nil {
		return err
	}
	return validatePrograms(c.Programs, "")
}

func validateHooks(hooks map[string]Hook) error {
	for name, h := range hooks {
		if strings.TrimSpace(h.Command) == "" {
			return fmt.Errorf("hooks.%s.command is required", name)
		}
		for _, on := range h.On {
			if !slices.Contains(ValidHookTriggers, on) {
				return fmt.Errorf("invalid hooks.%s.on %q: must be %s", name, on, formatOptions(ValidHookTriggers))
			}
		}
	}
	return nil
}

// validatePrograms checks that every program targets a known platform and
// names all three selectors.
func validatePrograms(programs map[string]Program, contextInfo string) error {
	suffix := ""
	if contextInfo != "" {
		suffix = " in " + contextInfo
	}
	ids := make([]string, 0, len(publication.DefaultPlatforms))
	for _, p := range publication.DefaultPlatforms {
		ids = append(ids, p.ID)
	}
	for id, p := range programs {
		if !slices.Contains(ids, id) {
			return fmt.Errorf("invalid programs.%s%s: platform must be %s", id, suffix, formatOptions(ids))
		}
		for field, sel := range map[string]string{
			"content_selector": p.ContentSelector,
			"submit_selector":  p.SubmitSelector,
			"confirm_selector": p.ConfirmSelector,
		} {
			if strings.TrimSpace(sel) == "" {
				return fmt.Errorf("programs.%s.%s is required%s", id, field, suffix)
			}
		}
		if p.Timeout < 0 {
			return fmt.Errorf("invalid programs.%s.timeout %s%s: must not be negative", id, p.Timeout, suffix)
		}
	}
	return nil
}

// formatOptions formats a list of allowed values for error messages.
// E.g., ["a", "b", "c"] -> `"a", "b", or "c"`
func formatOptions(opts []string) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = fmt.Sprintf("%q", o)
	}
	if len(quoted) <= 2 {
		return strings.Join(quoted, " or ")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
