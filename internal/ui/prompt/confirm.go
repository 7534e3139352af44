package prompt

import (
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/REZICS/PolyPress/internal/ui"
	"github.com/REZICS/PolyPress/internal/ui/styles"
)

// ConfirmResult holds the answer of a confirmation prompt.
type ConfirmResult struct {
	Confirmed bool
	Cancelled bool
}

type confirmModel struct {
	prompt    string
	confirmed bool
	done      bool
	cancelled bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.confirmed = true
	case "n", "N", "enter":
		m.confirmed = false
	case "ctrl+c", "q", "esc":
		m.cancelled = true
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}
	return tea.NewView(fmt.Sprintf("%s %s ", m.prompt, styles.MutedStyle.Render("[y/N]")))
}

// Confirm asks a yes/no question. Enter answers no.
func Confirm(prompt string) (ConfirmResult, error) {
	if !ui.Interactive() {
		return ConfirmResult{}, ErrNotInteractive
	}
	final, err := ui.NewProgram(confirmModel{prompt: prompt}).Run()
	if err != nil {
		return ConfirmResult{}, err
	}
	m := final.(confirmModel)
	return ConfirmResult{Confirmed: m.confirmed, Cancelled: m.cancelled}, nil
}
