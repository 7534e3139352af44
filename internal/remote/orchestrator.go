package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/REZICS/PolyPress/internal/publication"
	"github.com/REZICS/PolyPress/internal/remote/scripts"
)

// ErrOrchestratorClosed is returned by Open after Close.
var ErrOrchestratorClosed = errors.New("update orchestrator closed")

// subscriberBuffer is the per-subscriber event backlog. Events for a
// full subscriber are dropped.
const subscriberBuffer = 64

// Options configures an Orchestrator.
type Options struct {
	// Factory creates the surface. Defaults to NewChromeSurface.
	Factory SurfaceFactory

	// Bounds sizes a new surface when Open has no reference bounds.
	Bounds *Bounds

	Headless bool
	ExecPath string
	DevTools bool

	// Programs resolves a platform's update flow.
	Programs Programs

	Logger *slog.Logger
	Now    func() time.Time
}

// OpenArgs describes one update run.
type OpenArgs struct {
	// Reference sizes a newly created surface. Ignored when one is live.
	Reference   *Bounds
	URL         string
	Title       string
	ContentText string
	Program     scripts.Program
}

// Orchestrator owns the singleton update surface and the runs on it.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	surface   Surface
	state     State
	runID     string
	cancelRun context.CancelFunc
	runDone   chan struct{}
	closed    bool

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New returns an orchestrator with no surface.
func New(opts Options) *Orchestrator {
	if opts.Factory == nil {
		opts.Factory = NewChromeSurface
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Programs == nil {
		opts.Programs = ProgramsFromConfig(nil)
	}
	return &Orchestrator{
		opts:   opts,
		logger: opts.Logger,
		subs:   make(map[int]chan Event),
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Open starts a run: it creates the surface if none is live, cancels the
// run in progress, loads args.URL and injects the update flow once the
// page has loaded. It returns the new run's id without waiting for the
// page. Failures after that point are reported as events only.
func (o *Orchestrator) Open(ctx context.Context, args OpenArgs) (string, error) {
	url := strings.TrimSpace(args.URL)
	if url == "" {
		url = publication.BlankURL
	}
	if args.Program.Platform == "" && args.Program.ContentSelector == "" {
		args.Program = o.opts.Programs.Lookup("")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return "", ErrOrchestratorClosed
	}

	created := false
	if o.surface == nil {
		s, err := o.opts.Factory(ctx, SurfaceOptions{
			Bounds:   o.bounds(args.Reference),
			Title:    args.Title,
			Headless: o.opts.Headless,
			ExecPath: o.opts.ExecPath,
			DevTools: o.opts.DevTools,
			OnReport: o.onReport,
		})
		if err != nil {
			return "", fmt.Errorf("open update surface: %w", err)
		}
		o.surface = s
		o.state = Idle
		created = true
		go o.watch(s)
	}

	if o.cancelRun != nil {
		o.cancelRun()
	}
	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.runID = runID
	o.cancelRun = cancel
	o.runDone = done
	o.state = Loading

	if created {
		o.emit(Event{RunID: runID, Stage: StageSurfaceOpen, Text: args.Title})
	}
	go o.run(runCtx, done, o.surface, runID, url, args)

	o.logger.Debug("update run started", "run", runID, "url", url, "platform", args.Program.Platform)
	return runID, nil
}

func (o *Orchestrator) bounds(ref *Bounds) Bounds {
	switch {
	case ref.usable():
		return *ref
	case o.opts.Bounds.usable():
		return *o.opts.Bounds
	default:
		return DefaultBounds
	}
}

func (o *Orchestrator) run(ctx context.Context, done chan struct{}, s Surface, runID, url string, args OpenArgs) {
	defer close(done)

	o.emit(Event{RunID: runID, Stage: StageLoading, Text: url})
	if err := s.Navigate(ctx, url); err != nil {
		o.fail(ctx, runID, "navigate", err)
		return
	}

	o.setState(runID, Injecting)
	o.emit(Event{RunID: runID, Stage: StageInjecting})

	invocation, err := scripts.Invocation(runID, args.Title, args.ContentText, args.Program)
	if err != nil {
		o.fail(ctx, runID, "build invocation", err)
		return
	}
	steps := []struct {
		name   string
		script string
	}{
		{"notice bundle", scripts.Notice},
		{"update bundle", scripts.Update},
		{"invocation", invocation},
	}
	for _, step := range steps {
		if err := s.Evaluate(ctx, step.script); err != nil {
			o.fail(ctx, runID, step.name, err)
			return
		}
	}

	o.setState(runID, Idle)
	o.emit(Event{RunID: runID, Stage: StageInjected})
}

// fail ends a run after a failed step. A run cancelled by a newer Open
// ends quietly.
func (o *Orchestrator) fail(ctx context.Context, runID, step string, err error) {
	if ctx.Err() != nil {
		o.logger.Debug("update run superseded", "run", runID, "step", step)
		return
	}
	o.logger.Error("update run failed", "run", runID, "step", step, "error", err)
	o.setState(runID, Idle)
	o.emit(Event{RunID: runID, Stage: StageFailed, Text: step, Error: err.Error()})
}

func (o *Orchestrator) setState(runID string, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID == runID && o.surface != nil {
		o.state = s
	}
}

// watch forgets s once it is gone.
func (o *Orchestrator) watch(s Surface) {
	<-s.Done()

	o.mu.Lock()
	if o.surface != s {
		o.mu.Unlock()
		return
	}
	o.surface = nil
	o.state = Closed
	runID := o.runID
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.mu.Unlock()

	o.logger.Debug("update surface closed")
	o.emit(Event{RunID: runID, Stage: StageClosed})
}

func (o *Orchestrator) onReport(r Report) {
	o.mu.Lock()
	current := o.runID
	o.mu.Unlock()
	if r.RunID != "" && r.RunID != current {
		return
	}
	if r.Stage == StageFailed {
		o.logger.Warn("update flow failed", "run", current, "error", r.Error)
	} else {
		o.logger.Debug("update flow", "run", current, "stage", r.Stage)
	}
	o.emit(Event{RunID: current, Stage: r.Stage, Text: r.Text, Error: r.Error})
}

// Wait blocks until the current run has finished injecting (or failed),
// or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.runDone
	o.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push starts an update of req.URL with the flow of req.PlatformID.
func (o *Orchestrator) Push(ctx context.Context, req publication.PushRequest) error {
	_, err := o.Open(ctx, OpenArgs{
		URL:         req.URL,
		Title:       req.Title,
		ContentText: req.ContentText,
		Program:     o.opts.Programs.Lookup(req.PlatformID),
	})
	return err
}

// Subscribe returns a channel of events and a function that ends the
// subscription. The channel is closed by either.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	o.subMu.Lock()
	defer o.subMu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if o.subs == nil {
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.subMu.Lock()
			defer o.subMu.Unlock()
			if c, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(c)
			}
		})
	}
}

func (o *Orchestrator) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = o.opts.Now()
	}
	o.subMu.Lock()
	defer o.subMu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close cancels the current run, closes the surface and ends all
// subscriptions.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	s := o.surface
	o.surface = nil
	o.state = Closed
	o.mu.Unlock()

	var err error
	if s != nil {
		err = s.Close()
	}

	o.subMu.Lock()
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
	o.subs = nil
	o.subMu.Unlock()
	return err
}
