package prompt

import (
	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"

	"github.com/REZICS/PolyPress/internal/ui"
	"github.com/REZICS/PolyPress/internal/ui/styles"
)

// Option is one choice of a Select prompt.
type Option struct {
	Label string
	Hint  string
}

// SelectResult holds the chosen option.
type SelectResult struct {
	Index     int
	Cancelled bool
}

type listItem struct {
	Option
	index int
}

func (i listItem) Title() string       { return i.Label }
func (i listItem) Description() string { return i.Hint }
func (i listItem) FilterValue() string { return i.Label }

type selectModel struct {
	list      list.Model
	done      bool
	cancelled bool
	selected  int
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		if m.list.SettingFilter() {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(listItem); ok {
				m.selected = item.index
			}
			m.done = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}
	return tea.NewView(m.list.View())
}

func newSelect(prompt string, options []Option) selectModel {
	items := make([]list.Item, len(options))
	showHints := false
	for i, opt := range options {
		items[i] = listItem{Option: opt, index: i}
		showHints = showHints || opt.Hint != ""
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = showHints
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = styles.AccentStyle

	height := len(options) + 6
	if showHints {
		height += len(options)
	}
	l := list.New(items, delegate, 60, min(height, 20))
	l.Title = prompt
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	return selectModel{list: l, selected: -1}
}

// Select asks for one of options.
func Select(prompt string, options []Option) (SelectResult, error) {
	if len(options) == 0 {
		return SelectResult{Index: -1, Cancelled: true}, nil
	}
	if !ui.Interactive() {
		return SelectResult{Index: -1}, ErrNotInteractive
	}
	final, err := ui.NewProgram(newSelect(prompt, options)).Run()
	if err != nil {
		return SelectResult{Index: -1}, err
	}
	m := final.(selectModel)
	if m.cancelled || m.selected < 0 || m.selected >= len(options) {
		return SelectResult{Index: -1, Cancelled: true}, nil
	}
	return SelectResult{Index: m.selected}, nil
}
