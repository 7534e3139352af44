package prompt

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/REZICS/PolyPress/internal/ui"
	"github.com/REZICS/PolyPress/internal/ui/styles"
)

// TextInputResult holds the entered text.
type TextInputResult struct {
	Value     string
	Cancelled bool
}

type textInputModel struct {
	input     textinput.Model
	prompt    string
	done      bool
	cancelled bool
}

func (m textInputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m textInputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyPressMsg); ok {
		switch key.String() {
		case "enter":
			m.done = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.cancelled = true
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textInputModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}
	return tea.NewView(fmt.Sprintf("%s\n%s", styles.Bold.Render(m.prompt), m.input.View()))
}

func newTextInput(prompt, placeholder, initial string) textInputModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 2048
	ti.SetWidth(60)
	ti.SetValue(initial)
	ti.Focus()
	return textInputModel{input: ti, prompt: prompt}
}

// TextInput asks for one line of text, prefilled with initial. The
// value is trimmed.
func TextInput(prompt, placeholder, initial string) (TextInputResult, error) {
	if !ui.Interactive() {
		return TextInputResult{}, ErrNotInteractive
	}
	final, err := ui.NewProgram(newTextInput(prompt, placeholder, initial)).Run()
	if err != nil {
		return TextInputResult{}, err
	}
	m := final.(textInputModel)
	return TextInputResult{
		Value:     strings.TrimSpace(m.input.Value()),
		Cancelled: m.cancelled,
	}, nil
}
