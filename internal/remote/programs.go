package remote

import (
	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/remote/scripts"
)

// Programs maps platform ids to their update flow.
type Programs map[string]scripts.Program

// ProgramsFromConfig overlays the configured [programs.*] tables on the
// built-in flows. A table may set only some fields; the rest come from
// the built-in flow.
func ProgramsFromConfig(cfg map[string]config.Program) Programs {
	out := Programs{scripts.Penana.Platform: scripts.Penana}
	for id, c := range cfg {
		p := out.Lookup(id)
		p.Platform = id
		if c.ContentSelector != "" {
			p.ContentSelector = c.ContentSelector
		}
		if c.SubmitSelector != "" {
			p.SubmitSelector = c.SubmitSelector
		}
		if c.ConfirmSelector != "" {
			p.ConfirmSelector = c.ConfirmSelector
		}
		if c.Timeout > 0 {
			p.Timeout = c.Timeout
		}
		out[id] = p
	}
	return out
}

// Lookup returns the flow for a platform. Platforms without their own
// flow use the Penana flow.
func (p Programs) Lookup(platformID string) scripts.Program {
	if prog, ok := p[platformID]; ok {
		return prog
	}
	prog := scripts.Penana
	if platformID != "" {
		prog.Platform = platformID
	}
	return prog
}
