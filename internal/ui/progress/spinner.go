// Package progress shows progress of long-running operations on stderr:
// a spinner while an update is injected and a bar for bulk updates.
// Without a terminal both degrade to plain lines.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/REZICS/PolyPress/internal/ui"
	"github.com/REZICS/PolyPress/internal/ui/styles"
)

const stopWait = 500 * time.Millisecond

type messageUpdate string

// Spinner shows a status message next to an animation.
type Spinner struct {
	mu      sync.Mutex
	program *tea.Program
	msgCh   chan string
	done    chan struct{}
	running bool
	message string

	// plain is used instead of an animation when set.
	plain io.Writer
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	msgCh   chan string
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m spinnerModel) next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.msgCh
		if !ok {
			return tea.Quit()
		}
		return messageUpdate(msg)
	}
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messageUpdate:
		m.message = string(msg)
		return m, m.next()
	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() tea.View {
	if m.message == "" {
		return tea.NewView("")
	}
	return tea.NewView(fmt.Sprintf("%s %s", m.spinner.View(), m.message))
}

// NewSpinner returns a stopped spinner. When stderr is not a terminal,
// messages are written as lines instead.
func NewSpinner(message string) *Spinner {
	s := &Spinner{
		msgCh:   make(chan string, 10),
		done:    make(chan struct{}),
		message: message,
	}
	if !ui.StderrIsTerminal() {
		s.plain = os.Stderr
	}
	return s
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	if s.plain != nil {
		if s.message != "" {
			fmt.Fprintln(s.plain, s.message)
		}
		close(s.done)
		return
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.AccentStyle
	s.program = ui.NewProgram(spinnerModel{spinner: sp, message: s.message, msgCh: s.msgCh},
		tea.WithoutSignalHandler(), tea.WithInput(nil))
	go func() {
		_, _ = s.program.Run()
		close(s.done)
	}()
}

// Set changes the message. Updates are dropped while the display is
// backed up.
func (s *Spinner) Set(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == s.message {
		return
	}
	s.message = message
	if !s.running {
		return
	}
	if s.plain != nil {
		fmt.Fprintln(s.plain, message)
		return
	}
	select {
	case s.msgCh <- message:
	default:
	}
}

// Stop ends the animation and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.msgCh)
	program := s.program
	s.mu.Unlock()

	if program == nil {
		return
	}
	program.Quit()
	select {
	case <-s.done:
	case <-time.After(stopWait):
	}
	fmt.Fprint(os.Stderr, "\r\033[K")
}
