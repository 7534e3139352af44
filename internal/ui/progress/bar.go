package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"

	"github.com/REZICS/PolyPress/internal/ui"
	"github.com/REZICS/PolyPress/internal/ui/styles"
)

type barUpdate struct {
	current int
	label   string
}

// Bar tracks a known number of steps, such as the platforms of a bulk
// update.
type Bar struct {
	mu      sync.Mutex
	program *tea.Program
	updates chan barUpdate
	done    chan struct{}
	running bool
	total   int
	current int
	label   string

	plain io.Writer
}

type barModel struct {
	bar     progress.Model
	total   int
	current int
	label   string
	updates chan barUpdate
}

func (m barModel) Init() tea.Cmd {
	return m.next()
}

func (m barModel) next() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return tea.Quit()
		}
		return u
	}
}

func (m barModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case barUpdate:
		m.current = msg.current
		m.label = msg.label
		return m, m.next()
	default:
		var cmd tea.Cmd
		m.bar, cmd = m.bar.Update(msg)
		return m, cmd
	}
}

func (m barModel) View() tea.View {
	return tea.NewView(fmt.Sprintf("%s %s %s", m.bar.ViewAs(fraction(m.current, m.total)), Count(m.current, m.total), m.label))
}

func fraction(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return min(float64(current)/float64(total), 1)
}

// Count formats a step counter such as "[2/4]".
func Count(current, total int) string {
	return fmt.Sprintf("[%d/%d]", current, total)
}

// NewBar returns a stopped bar over total steps.
func NewBar(total int) *Bar {
	b := &Bar{
		updates: make(chan barUpdate, 10),
		done:    make(chan struct{}),
		total:   total,
	}
	if !ui.StderrIsTerminal() {
		b.plain = os.Stderr
	}
	return b
}

// Start shows the bar.
func (b *Bar) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true
	if b.plain != nil {
		close(b.done)
		return
	}

	model := barModel{
		bar: progress.New(
			progress.WithWidth(30),
			progress.WithoutPercentage(),
			progress.WithColors(styles.Current().Primary, styles.Current().Accent),
		),
		total:   b.total,
		current: b.current,
		label:   b.label,
		updates: b.updates,
	}
	b.program = ui.NewProgram(model, tea.WithoutSignalHandler(), tea.WithInput(nil))
	go func() {
		_, _ = b.program.Run()
		close(b.done)
	}()
}

// Step reports that step current (1-based) of the bar is under way.
func (b *Bar) Step(current int, label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = current
	b.label = label
	if !b.running {
		return
	}
	if b.plain != nil {
		fmt.Fprintf(b.plain, "%s %s\n", Count(current, b.total), label)
		return
	}
	select {
	case b.updates <- barUpdate{current: current, label: label}:
	default:
	}
}

// Stop removes the bar.
func (b *Bar) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.updates)
	program := b.program
	b.mu.Unlock()

	if program == nil {
		return
	}
	program.Quit()
	select {
	case <-b.done:
	case <-time.After(stopWait):
	}
	fmt.Fprint(os.Stderr, "\r\033[K")
}

// Total returns the number of steps.
func (b *Bar) Total() int {
	return b.total
}
