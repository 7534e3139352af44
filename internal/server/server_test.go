package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/REZICS/PolyPress/internal/app"
	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/publication"
	"github.com/REZICS/PolyPress/internal/remote"
	"github.com/REZICS/PolyPress/internal/textdecode"
	"github.com/REZICS/PolyPress/internal/workspace"
)

type nopSurface struct {
	done chan struct{}
	once sync.Once
}

func (s *nopSurface) Navigate(context.Context, string) error { return nil }
func (s *nopSurface) Evaluate(context.Context, string) error { return nil }
func (s *nopSurface) Done() <-chan struct{}                  { return s.done }
func (s *nopSurface) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	svc := app.New(app.Options{
		Config: &cfg,
		Surface: func(context.Context, remote.SurfaceOptions) (remote.Surface, error) {
			return &nopSurface{done: make(chan struct{})}, nil
		},
	})
	t.Cleanup(func() {
		svc.Close()
	})

	s := New(svc, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return s, ts
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out.Bytes()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", publication.ErrRequired), http.StatusBadRequest},
		{workspace.ErrRootRequired, http.StatusBadRequest},
		{errors.Join(errBadRequest, errors.New("eof")), http.StatusBadRequest},
		{fmt.Errorf("/tmp: %w", textdecode.ErrNotRegularFile), http.StatusUnprocessableEntity},
		{&fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, http.StatusNotFound},
		{workspace.ErrPickerUnavailable, http.StatusNotImplemented},
		{publication.ErrNothingToUpdate, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	code, body := call(t, ts, http.MethodGet, "/healthz", nil)
	if code != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", code, body)
	}
}

func TestWorkspaceRoutes(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "novel.txt"), "\ufeffchapter one")

	t.Run("tree", func(t *testing.T) {
		code, body := call(t, ts, http.MethodPost, "/api/workspace/tree", map[string]any{"root": root})
		if code != http.StatusOK {
			t.Fatalf("status = %d, body %s", code, body)
		}
		var node workspace.Node
		if err := json.Unmarshal(body, &node); err != nil {
			t.Fatal(err)
		}
		if len(node.Children) != 1 || node.Children[0].Name != "novel.txt" {
			t.Errorf("children = %+v", node.Children)
		}
	})

	t.Run("tree blank root", func(t *testing.T) {
		code, _ := call(t, ts, http.MethodPost, "/api/workspace/tree", map[string]any{"root": "  "})
		if code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})

	t.Run("read", func(t *testing.T) {
		code, body := call(t, ts, http.MethodPost, "/api/workspace/read", map[string]any{"path": filepath.Join(root, "novel.txt")})
		if code != http.StatusOK {
			t.Fatalf("status = %d, body %s", code, body)
		}
		var res textdecode.Result
		if err := json.Unmarshal(body, &res); err != nil {
			t.Fatal(err)
		}
		if res.Text != "chapter one" {
			t.Errorf("text = %q", res.Text)
		}
	})

	t.Run("read errors", func(t *testing.T) {
		if code, _ := call(t, ts, http.MethodPost, "/api/workspace/read", map[string]any{"path": filepath.Join(root, "missing.txt")}); code != http.StatusNotFound {
			t.Errorf("missing file status = %d, want 404", code)
		}
		if code, _ := call(t, ts, http.MethodPost, "/api/workspace/read", map[string]any{"path": root}); code != http.StatusUnprocessableEntity {
			t.Errorf("directory status = %d, want 422", code)
		}
	})

	t.Run("coerce", func(t *testing.T) {
		code, body := call(t, ts, http.MethodPost, "/api/workspace/coerce", map[string]any{"path": filepath.Join(root, "novel.txt")})
		if code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		var out struct{ Path *string }
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatal(err)
		}
		if out.Path == nil || *out.Path != root {
			t.Errorf("path = %v, want %s", out.Path, root)
		}
	})

	t.Run("pick without picker", func(t *testing.T) {
		if code, _ := call(t, ts, http.MethodPost, "/api/workspace/pick", nil); code != http.StatusNotImplemented {
			t.Errorf("status = %d, want 501", code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/workspace/tree", strings.NewReader("{root:"))
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestPublicationRoutes(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	root := t.TempDir()
	file := filepath.Join(root, "novel.txt")
	writeFile(t, file, "chapter one")
	args := app.ListArgs{WorkspaceRoot: root, FilePath: file}

	code, body := call(t, ts, http.MethodPost, "/api/publications/list", args)
	if code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", code, body)
	}
	var records []publication.Record
	if err := json.Unmarshal(body, &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != len(publication.DefaultPlatforms) {
		t.Fatalf("got %d records, want %d", len(records), len(publication.DefaultPlatforms))
	}

	if code, _ := call(t, ts, http.MethodPost, "/api/publications/update-all", args); code != http.StatusConflict {
		t.Errorf("update-all without urls status = %d, want 409", code)
	}

	id := publication.ID("penana", file)
	code, body = call(t, ts, http.MethodPost, "/api/publications/remote-url", app.SetRemoteURLArgs{
		WorkspaceRoot: root, PublicationID: id, RemoteURL: "https://example.com/p/1",
	})
	if code != http.StatusOK {
		t.Fatalf("remote-url status = %d, body %s", code, body)
	}

	code, body = call(t, ts, http.MethodPost, "/api/publications/touch", publication.TouchArgs{
		WorkspaceRoot: root, PublicationID: id, ContentPath: file,
	})
	if code != http.StatusOK {
		t.Fatalf("touch status = %d, body %s", code, body)
	}
	var rec publication.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatal(err)
	}
	if !rec.Submitted() {
		t.Errorf("touched record not submitted: %+v", rec)
	}

	code, body = call(t, ts, http.MethodPost, "/api/publications/update-all", args)
	if code != http.StatusOK {
		t.Fatalf("update-all status = %d, body %s", code, body)
	}
	var resp updateAllResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Record.ID != id || resp.Failed != 0 {
		t.Errorf("update-all = %+v", resp)
	}

	if code, _ := call(t, ts, http.MethodPost, "/api/publications/touch", publication.TouchArgs{WorkspaceRoot: root}); code != http.StatusBadRequest {
		t.Errorf("blank touch status = %d, want 400", code)
	}
}

func TestSessionRoutes(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	root := t.TempDir()
	file := filepath.Join(root, "novel.txt")
	writeFile(t, file, "x")

	code, _ := call(t, ts, http.MethodPut, "/api/session", app.Selection{WorkspaceRoot: root, FilePath: file})
	if code != http.StatusAccepted {
		t.Fatalf("select status = %d", code)
	}
	code, body := call(t, ts, http.MethodGet, "/api/session/publications?reload=1", nil)
	if code != http.StatusOK {
		t.Fatalf("view status = %d, body %s", code, body)
	}
	var view app.SessionView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.FilePath != file || len(view.Records) != len(publication.DefaultPlatforms) {
		t.Errorf("view = %+v", view)
	}
}

func TestEvents(t *testing.T) {
	t.Parallel()
	s, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// Registration races the handshake; broadcast until one arrives.
	var msg Message
	for i := 0; ; i++ {
		if i == 50 {
			t.Fatal("no message received after connecting")
		}
		s.hub.Broadcast("hello", i)
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		if err := conn.ReadJSON(&msg); err == nil {
			break
		}
		conn.Close()
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatal(err)
		}
	}
	if msg.Type != "hello" {
		t.Fatalf("type = %q, want hello", msg.Type)
	}

	root := t.TempDir()
	file := filepath.Join(root, "novel.txt")
	writeFile(t, file, "x")
	id := publication.ID("popo", file)
	if code, body := call(t, ts, http.MethodPost, "/api/publications/list", app.ListArgs{WorkspaceRoot: root, FilePath: file}); code != http.StatusOK {
		t.Fatalf("list = %d %s", code, body)
	}
	code, body := call(t, ts, http.MethodPost, "/api/publications/remote-url", app.SetRemoteURLArgs{
		WorkspaceRoot: root, PublicationID: id, RemoteURL: "https://example.com/p/2",
	})
	if code != http.StatusOK || strings.TrimSpace(string(body)) == "null" {
		t.Fatalf("remote-url = %d %s", code, body)
	}
	if code, body := call(t, ts, http.MethodPost, "/api/publications/update-all", app.ListArgs{WorkspaceRoot: root, FilePath: file}); code != http.StatusOK {
		t.Fatalf("update-all = %d %s", code, body)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for progress: %v", err)
		}
		if msg.Type != "progress" {
			continue
		}
		var p progressEvent
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			t.Fatal(err)
		}
		if p.Index != 0 || p.Total != 1 || p.Record.ID != id {
			t.Errorf("progress = %+v", p)
		}
		return
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/publications/list", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
