package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/REZICS/PolyPress/internal/publication"
)

// Selection is the workspace file whose publications are shown.
type Selection struct {
	WorkspaceRoot string `json:"workspaceRoot"`
	FilePath      string `json:"filePath"`
}

// SessionView is what a UI shows for the current selection.
type SessionView struct {
	Selection
	Seq     uint64               `json:"seq"`
	Records []publication.Record `json:"records"`
	Error   string               `json:"error,omitempty"`
}

// ListFunc lists the publications of a file.
type ListFunc func(ctx context.Context, root, filePath string) ([]publication.Record, error)

type listing struct {
	sel     Selection
	records []publication.Record
}

// Session keeps the publication list of the selected file current.
// Rapid selection changes are debounced, and a reload that finishes
// after a newer one was requested is discarded.
type Session struct {
	list     ListFunc
	debounce time.Duration
	onChange func(SessionView)

	latest Latest[listing]

	mu     sync.Mutex
	sel    Selection
	timer  *time.Timer
	closed bool

	notifyMu sync.Mutex
	notified uint64 // seq of the last view passed to onChange
}

// NewSession returns a session with nothing selected. onChange, when
// set, is called with every applied view.
func NewSession(list ListFunc, debounce time.Duration, onChange func(SessionView)) *Session {
	return &Session{list: list, debounce: debounce, onChange: onChange}
}

// Select changes the selection and schedules a reload.
func (s *Session) Select(root, filePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sel = Selection{WorkspaceRoot: strings.TrimSpace(root), FilePath: strings.TrimSpace(filePath)}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.Reload(context.Background())
	})
}

// Selection returns the current selection.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Reload lists the publications of the current selection now. The
// returned view is the session's current view, which is not this
// reload's result if a newer one was requested meanwhile.
func (s *Session) Reload(ctx context.Context) (SessionView, error) {
	sel := s.Selection()
	_, applied, err := s.latest.Do(ctx, func(ctx context.Context) (listing, error) {
		if sel.FilePath == "" || sel.WorkspaceRoot == "" {
			return listing{sel: sel}, nil
		}
		records, err := s.list(ctx, sel.WorkspaceRoot, sel.FilePath)
		return listing{sel: sel, records: records}, err
	})
	view := s.View()
	if applied {
		s.notify(view)
	}
	if applied {
		return view, err
	}
	return view, nil
}

// notify passes view to onChange unless a newer view was already
// passed. Calls are serialized.
func (s *Session) notify(view SessionView) {
	if s.onChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if view.Seq <= s.notified {
		return
	}
	s.notified = view.Seq
	s.onChange(view)
}

// View returns the current view.
func (s *Session) View() SessionView {
	snap := s.latest.Snapshot()
	view := SessionView{
		Selection: snap.Value.sel,
		Seq:       snap.Seq,
		Records:   snap.Value.records,
	}
	if view.Records == nil {
		view.Records = []publication.Record{}
	}
	if snap.Err != nil {
		view.Error = snap.Err.Error()
	}
	return view
}

// Close stops a pending reload.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}
