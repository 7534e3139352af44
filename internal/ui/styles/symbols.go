package styles

// Symbols marks the state of a publication in listings.
type Symbols struct {
	Submitted string // has a remote URL and was submitted at least once
	Linked    string // has a remote URL, never submitted
	Unlinked  string // no remote URL
	Failed    string
}

var (
	defaultSymbols = Symbols{Submitted: "●", Linked: "○", Unlinked: "·", Failed: "✕"}

	nerdfontSymbols = Symbols{
		Submitted: "\uf058", // nf-fa-check_circle
		Linked:    "\uf0c1", // nf-fa-link
		Unlinked:  "\uf127", // nf-fa-chain_broken
		Failed:    "\uf057", // nf-fa-times_circle
	}

	currentSymbols = defaultSymbols
)

// SetNerdfont switches between plain and nerd font symbols.
func SetNerdfont(enabled bool) {
	if enabled {
		currentSymbols = nerdfontSymbols
		return
	}
	currentSymbols = defaultSymbols
}

// CurrentSymbols returns the active symbol set.
func CurrentSymbols() Symbols {
	return currentSymbols
}

// PublicationSymbol returns the styled symbol for a publication state.
func PublicationSymbol(linked, submitted bool) string {
	switch {
	case linked && submitted:
		return SuccessStyle.Render(currentSymbols.Submitted)
	case linked:
		return WarningStyle.Render(currentSymbols.Linked)
	default:
		return MutedStyle.Render(currentSymbols.Unlinked)
	}
}
