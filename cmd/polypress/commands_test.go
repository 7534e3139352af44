package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/REZICS/PolyPress/internal/app"
	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/log"
	"github.com/REZICS/PolyPress/internal/output"
	"github.com/REZICS/PolyPress/internal/publication"
	"github.com/REZICS/PolyPress/internal/registry"
	"github.com/REZICS/PolyPress/internal/remote"
)

// pageSurface plays a page whose update flow reports after the third
// script of every run: done, or failed for URLs containing "fail".
type pageSurface struct {
	onReport func(remote.Report)

	mu    sync.Mutex
	url   string
	evals int
	done  chan struct{}
	once  sync.Once
}

func (p *pageSurface) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	return nil
}

func (p *pageSurface) Evaluate(context.Context, string) error {
	p.mu.Lock()
	p.evals++
	n, url := p.evals, p.url
	p.mu.Unlock()
	if n%3 != 0 {
		return nil
	}
	if strings.Contains(url, "fail") {
		p.onReport(remote.Report{Stage: remote.StageFailed, Error: "submit button missing"})
		return nil
	}
	p.onReport(remote.Report{Stage: remote.StageDone})
	return nil
}

func (p *pageSurface) Done() <-chan struct{} { return p.done }

func (p *pageSurface) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

type testEnv struct {
	ctx  context.Context
	root string
	st   *state
	out  *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "novels")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.RegistryPath = filepath.Join(dir, "state", "workspaces.json")
	cfg.HistoryPath = filepath.Join(dir, "state", "history.json")
	st := newState(&cfg)
	st.build = func(l *log.Logger) *app.Service {
		return app.New(app.Options{
			Config: &cfg,
			Logger: l,
			Surface: func(_ context.Context, opts remote.SurfaceOptions) (remote.Surface, error) {
				return &pageSurface{onReport: opts.OnReport, done: make(chan struct{})}, nil
			},
		})
	}
	t.Cleanup(func() { st.close() })

	var out bytes.Buffer
	ctx := withState(context.Background(), st)
	ctx = config.WithResolver(ctx, config.NewResolver(&cfg))
	ctx = output.WithPrinter(ctx, &out)
	ctx = withRoot(ctx, root)
	return &testEnv{ctx: ctx, root: root, st: st, out: &out}
}

// run executes cmd with args and returns what it printed.
func (e *testEnv) run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	e.out.Reset()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(e.ctx)
	return e.out.String(), err
}

func (e *testEnv) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.root, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolvePublicationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ref     string
		file    string
		want    string
		wantErr bool
	}{
		{"platform with file", "penana", "/novels/ch1.txt", publication.ID("penana", "/novels/ch1.txt"), false},
		{"stored id", publication.ID("popo", "/novels/ch1.txt"), "", publication.ID("popo", "/novels/ch1.txt"), false},
		{"plain path id", "popo::/novels/ch1.txt", "", publication.ID("popo", "/novels/ch1.txt"), false},
		{"full id ignores file", "popo::/novels/ch1.txt", "/other.txt", publication.ID("popo", "/novels/ch1.txt"), false},
		{"unknown platform", "wattpad", "/novels/ch1.txt", "", true},
		{"platform without file", "penana", "", "", true},
		{"malformed id", "::", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := resolvePublicationID(tt.ref, tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolvePublicationID(%q, %q) error = %v, wantErr %v", tt.ref, tt.file, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolvePublicationID(%q, %q) = %q, want %q", tt.ref, tt.file, got, tt.want)
			}
		})
	}
}

func TestRunWatch(t *testing.T) {
	t.Parallel()

	t.Run("runs in sequence", func(t *testing.T) {
		t.Parallel()
		events := make(chan remote.Event, 10)
		w := &runWatch{events: events, timeout: time.Second}

		events <- remote.Event{RunID: "r1", Stage: remote.StageLoading}
		events <- remote.Event{RunID: "r1", Stage: remote.StageDone}
		if err := w.wait(context.Background()); err != nil {
			t.Fatalf("first run: %v", err)
		}

		// A late event of the finished run must not end the next one.
		events <- remote.Event{RunID: "r1", Stage: remote.StageStopped}
		events <- remote.Event{RunID: "r2", Stage: remote.StageInjecting}
		events <- remote.Event{RunID: "r2", Stage: remote.StageFailed, Error: "no editor"}
		err := w.wait(context.Background())
		if !errors.Is(err, errRunFailed) || !strings.Contains(err.Error(), "no editor") {
			t.Errorf("second run error = %v", err)
		}
	})

	t.Run("closed surface", func(t *testing.T) {
		t.Parallel()
		events := make(chan remote.Event, 1)
		events <- remote.Event{RunID: "r1", Stage: remote.StageClosed}
		w := &runWatch{events: events}
		if err := w.wait(context.Background()); !errors.Is(err, remote.ErrSurfaceClosed) {
			t.Errorf("error = %v, want ErrSurfaceClosed", err)
		}
	})

	t.Run("ended subscription", func(t *testing.T) {
		t.Parallel()
		events := make(chan remote.Event)
		close(events)
		w := &runWatch{events: events}
		if err := w.wait(context.Background()); !errors.Is(err, remote.ErrSurfaceClosed) {
			t.Errorf("error = %v, want ErrSurfaceClosed", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		w := &runWatch{events: make(chan remote.Event), timeout: 20 * time.Millisecond}
		err := w.wait(context.Background())
		if err == nil || !strings.Contains(err.Error(), "no result after") {
			t.Errorf("error = %v, want timeout", err)
		}
	})
}

func TestStageMessage(t *testing.T) {
	t.Parallel()

	if got := stageMessage(remote.Event{Stage: remote.StageLoading, Text: "https://x"}); got != "loading: https://x" {
		t.Errorf("stageMessage = %q", got)
	}
	if got := stageMessage(remote.Event{Stage: remote.StageDone}); got != "done" {
		t.Errorf("stageMessage = %q", got)
	}
}

func TestOpenAndRecent(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	got, err := e.run(t, newOpenCmd(), e.root)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got) != e.root {
		t.Errorf("open printed %q, want %q", got, e.root)
	}

	got, err = e.run(t, newRecentCmd(), "--json")
	if err != nil {
		t.Fatal(err)
	}
	var workspaces []registry.Workspace
	if err := json.Unmarshal([]byte(got), &workspaces); err != nil {
		t.Fatalf("recent --json: %v\n%s", err, got)
	}
	if len(workspaces) != 1 || workspaces[0].Path != e.root || workspaces[0].Name != "novels" {
		t.Errorf("workspaces = %+v", workspaces)
	}

	if _, err := e.run(t, newRecentCmd(), "--clear", "--yes"); err != nil {
		t.Fatal(err)
	}
	reg, err := registry.Load(e.st.registryPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.Workspaces) != 0 {
		t.Errorf("after clear: %+v", reg.Workspaces)
	}
}

func TestReadAndSelect(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	file := e.file(t, "ch1.txt", "\ufeffonce upon a time")

	got, err := e.run(t, newReadCmd(), file)
	if err != nil {
		t.Fatal(err)
	}
	if got != "once upon a time" {
		t.Errorf("read printed %q", got)
	}

	if _, err := e.run(t, newSelectCmd(), e.root); err == nil {
		t.Error("selecting a directory should fail")
	}
	if _, err := e.run(t, newSelectCmd(), file); err != nil {
		t.Fatal(err)
	}
	got, err = e.run(t, newSelectCmd())
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got) != file {
		t.Errorf("active file = %q, want %q", got, file)
	}

	// Publication commands fall back to the active file.
	got, err = e.run(t, newPubCmd(), "list", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var records []publication.Record
	if err := json.Unmarshal([]byte(got), &records); err != nil {
		t.Fatalf("list --json: %v\n%s", err, got)
	}
	if len(records) != len(publication.DefaultPlatforms) {
		t.Fatalf("records = %+v", records)
	}
	for _, r := range records {
		if r.FilePath != file {
			t.Errorf("record %s is for %s", r.ID, r.FilePath)
		}
	}
}

func TestPubCommands(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	file := e.file(t, "ch2.txt", "chapter two")

	if _, err := e.run(t, newPubCmd(), "push-all", file); !errors.Is(err, publication.ErrNothingToUpdate) {
		t.Fatalf("push-all without urls error = %v", err)
	}

	got, err := e.run(t, newPubCmd(), "set-url", "penana", "https://penana.example/edit/2", "-f", file)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got) != "https://penana.example/edit/2" {
		t.Errorf("set-url printed %q", got)
	}
	if _, err := e.run(t, newPubCmd(), "set-url", "popo::"+file, "https://popo.example/fail"); err != nil {
		t.Fatal(err)
	}

	got, err = e.run(t, newPubCmd(), "url", "penana", "-f", file)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got) != "https://penana.example/edit/2" {
		t.Errorf("url printed %q", got)
	}
	if _, err := e.run(t, newPubCmd(), "url", "rezics", "-f", file); err == nil {
		t.Error("url of a publication without remote URL should fail")
	}

	if _, err := e.run(t, newPubCmd(), "touch", "penana", "-f", file, "--timeout", "5s"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if _, err := e.run(t, newPubCmd(), "touch", "popo", "-f", file, "--timeout", "5s"); !errors.Is(err, errRunFailed) {
		t.Errorf("touch of failing page error = %v", err)
	}

	e.st.cfg.Hooks = map[string]config.Hook{
		"record": {Command: "echo {platform} >> hooks.txt", On: []string{config.HookPushAll}},
	}
	got, err = e.run(t, newPubCmd(), "push-all", file, "--timeout", "5s", "--json")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 platforms failed") {
		t.Errorf("push-all error = %v", err)
	}
	var results []pushResult
	if err := json.Unmarshal([]byte(got), &results); err != nil {
		t.Fatalf("push-all --json: %v\n%s", err, got)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].PlatformID != "penana" || results[0].Error != "" {
		t.Errorf("penana result = %+v", results[0])
	}
	if results[1].PlatformID != "popo" || !strings.Contains(results[1].Error, "submit button missing") {
		t.Errorf("popo result = %+v", results[1])
	}

	// Hooks run for updated platforms only.
	data, err := os.ReadFile(filepath.Join(e.root, "hooks.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "penana\n" {
		t.Errorf("hooks.txt = %q", data)
	}
	if _, err := e.run(t, newPubCmd(), "push-all", file, "--hook", "nope"); err == nil {
		t.Error("unknown --hook should fail")
	}
}

func TestRenderPushResults(t *testing.T) {
	t.Parallel()

	rec := publication.Record{ID: "penana::/a.txt", PlatformID: "penana", PlatformName: "Penana", MetadataJSON: `{"remoteUrl":"https://p.example"}`}
	got := renderPushResults([]publication.ItemResult{
		{Record: rec},
		{Record: rec, Err: errors.New("boom")},
	})
	for _, want := range []string{"PLATFORM", "Penana", "https://p.example", "ok", "boom"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
}
