// Package picker implements the interactive directory picker: a fuzzy
// filtered list of recent workspaces and the directories below the
// starting point.
package picker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/sahilm/fuzzy"

	"github.com/REZICS/PolyPress/internal/ui"
	"github.com/REZICS/PolyPress/internal/ui/styles"
	"github.com/REZICS/PolyPress/internal/workspace"
)

const (
	defaultDepth  = 2
	maxCandidates = 5000
	maxVisible    = 10
)

// Picker implements workspace.DirectoryPicker.
type Picker struct {
	// Recent roots are listed first when they still exist.
	Recent []string

	// Depth bounds the directory scan below the start. Zero means 2.
	Depth int
}

var _ workspace.DirectoryPicker = (*Picker)(nil)

// Pick shows the picker starting at start. Without a terminal it fails
// with workspace.ErrPickerUnavailable; a cancelled pick returns ok false.
func (p *Picker) Pick(ctx context.Context, start string) (string, bool, error) {
	if !ui.Interactive() {
		return "", false, workspace.ErrPickerUnavailable
	}
	candidates := Candidates(start, p.Recent, orDefault(p.Depth, defaultDepth))
	if len(candidates) == 0 {
		return "", false, nil
	}

	final, err := ui.NewProgram(newModel(candidates), tea.WithContext(ctx)).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", false, nil
		}
		return "", false, err
	}
	m := final.(model)
	if m.chosen == "" {
		return "", false, nil
	}
	return m.chosen, true, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Candidates lists the directories offered by the picker: existing
// recent roots, then start, its parent and the non-hidden directories
// below start down to depth. Duplicates are dropped.
func Candidates(start string, recent []string, depth int) []string {
	var out []string
	seen := map[string]bool{}
	add := func(dir string) bool {
		if len(out) >= maxCandidates {
			return false
		}
		if dir == "" || seen[dir] {
			return true
		}
		seen[dir] = true
		out = append(out, dir)
		return true
	}

	for _, r := range recent {
		if info, err := os.Stat(r); err == nil && info.IsDir() {
			add(filepath.Clean(r))
		}
	}

	if strings.TrimSpace(start) == "" {
		return out
	}
	start, err := filepath.Abs(strings.TrimSpace(start))
	if err != nil {
		return out
	}
	add(start)
	if parent := filepath.Dir(start); parent != start {
		add(parent)
	}

	level := []string{start}
	for d := 0; d < depth && len(level) > 0; d++ {
		var next []string
		for _, dir := range level {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
					continue
				}
				sub := filepath.Join(dir, e.Name())
				if !add(sub) {
					return out
				}
				next = append(next, sub)
			}
		}
		level = next
	}
	return out
}

// Label shortens a path under the home directory to ~/...
func Label(path, home string) string {
	if home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if rel, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rel
	}
	return path
}

type labels []string

func (l labels) String(i int) string { return l[i] }
func (l labels) Len() int            { return len(l) }

type model struct {
	dirs    []string
	labels  labels
	filter  string
	matches []fuzzy.Match
	cursor  int
	chosen  string
	done    bool
}

func newModel(dirs []string) model {
	home, _ := os.UserHomeDir()
	m := model{dirs: dirs, labels: make(labels, len(dirs))}
	for i, d := range dirs {
		m.labels[i] = Label(d, home)
	}
	m.applyFilter()
	return m
}

func (m *model) applyFilter() {
	if m.filter == "" {
		m.matches = make([]fuzzy.Match, len(m.labels))
		for i, l := range m.labels {
			m.matches[i] = fuzzy.Match{Str: l, Index: i}
		}
	} else {
		m.matches = fuzzy.FindFrom(m.filter, m.labels)
	}
	m.cursor = min(m.cursor, max(len(m.matches)-1, 0))
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc":
		m.done = true
		return m, tea.Quit
	case "enter":
		if m.cursor < len(m.matches) {
			m.chosen = m.dirs[m.matches[m.cursor].Index]
		}
		m.done = true
		return m, tea.Quit
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "ctrl+n":
		if m.cursor < len(m.matches)-1 {
			m.cursor++
		}
	case "backspace":
		if m.filter != "" {
			r := []rune(m.filter)
			m.filter = string(r[:len(r)-1])
			m.applyFilter()
		}
	default:
		if key.Text != "" {
			m.filter += key.Text
			m.cursor = 0
			m.applyFilter()
		}
	}
	return m, nil
}

func (m model) View() tea.View {
	if m.done {
		return tea.NewView("")
	}
	var b strings.Builder
	b.WriteString(styles.Bold.Render("Workspace") + " " + styles.MutedStyle.Render("filter:") + " " + m.filter + "\n\n")

	start := 0
	if m.cursor >= maxVisible {
		start = m.cursor - maxVisible + 1
	}
	end := min(start+maxVisible, len(m.matches))
	for i := start; i < end; i++ {
		match := m.matches[i]
		prefix := "  "
		if i == m.cursor {
			prefix = styles.AccentStyle.Render("> ")
		}
		b.WriteString(prefix + highlight(match, i == m.cursor) + "\n")
	}
	if len(m.matches) == 0 {
		b.WriteString(styles.MutedStyle.Render("  no matching directories") + "\n")
	} else if end < len(m.matches) {
		b.WriteString(styles.MutedStyle.Render("  ...") + "\n")
	}
	b.WriteString("\n" + styles.MutedStyle.Render("↑/↓ move • type to filter • enter open • esc cancel"))
	return tea.NewView(b.String())
}

func highlight(match fuzzy.Match, selected bool) string {
	base := styles.NormalStyle
	if selected {
		base = styles.AccentStyle
	}
	if len(match.MatchedIndexes) == 0 {
		return base.Render(match.Str)
	}
	var b strings.Builder
	for i, r := range match.Str {
		if slices.Contains(match.MatchedIndexes, i) {
			b.WriteString(styles.HighlightStyle.Render(string(r)))
			continue
		}
		b.WriteString(base.Render(string(r)))
	}
	return b.String()
}
