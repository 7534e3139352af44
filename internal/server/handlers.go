package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/REZICS/PolyPress/internal/app"
	"github.com/REZICS/PolyPress/internal/publication"
	"github.com/REZICS/PolyPress/internal/textdecode"
	"github.com/REZICS/PolyPress/internal/workspace"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("malformed request body")

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a boundary error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, publication.ErrRequired),
		errors.Is(err, workspace.ErrRootRequired):
		return http.StatusBadRequest
	case errors.Is(err, textdecode.ErrNotRegularFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrPickerUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, publication.ErrNothingToUpdate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

type pathRequest struct {
	Path string `json:"path"`
}

type treeRequest struct {
	Root string `json:"root"`
	app.TreeArgs
}

type readRequest struct {
	Path     string `json:"path"`
	MaxBytes int64  `json:"maxBytes"`
}

type dropRequest struct {
	Paths []string `json:"paths"`
}

type itemResult struct {
	Record publication.Record `json:"record"`
	Error  string             `json:"error,omitempty"`
}

type updateAllResponse struct {
	Results []itemResult `json:"results"`
	Failed  int          `json:"failed"`
	Error   string       `json:"error,omitempty"`
}

type progressEvent struct {
	Index  int                `json:"index"`
	Total  int                `json:"total"`
	Record publication.Record `json:"record"`
}

func (s *Server) handleCwd(w http.ResponseWriter, r *http.Request) {
	dir, err := s.svc.WorkingDirectory(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": dir})
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	dir, ok, err := s.svc.PickDirectory(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"path": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": dir})
}

func (s *Server) handleCoerce(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	dir, ok := s.svc.CoerceToDirectory(r.Context(), req.Path)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"path": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": dir})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	var req treeRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	node, err := s.svc.ListTree(r.Context(), req.Root, req.TreeArgs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req readRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.ReadText(r.Context(), req.Path, req.MaxBytes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	paths := s.svc.ResolveDropped(r.Context(), req.Paths)
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"paths": paths})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var req app.ListArgs
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	records, err := s.svc.ListPublicationsByFile(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTouch(w http.ResponseWriter, r *http.Request) {
	var req publication.TouchArgs
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.svc.TouchPublication(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// A vanished record is not an error; null is returned as is.
	writeJSON(w, http.StatusOK, rec)
	s.refreshSession(req.WorkspaceRoot)
}

func (s *Server) handleRemoteURL(w http.ResponseWriter, r *http.Request) {
	var req app.SetRemoteURLArgs
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.svc.SetPublicationRemoteURL(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
	s.refreshSession(req.WorkspaceRoot)
}

func (s *Server) handleUpdateAll(w http.ResponseWriter, r *http.Request) {
	var req app.ListArgs
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	results, err := s.svc.UpdateAll(r.Context(), req, func(i, n int, rec publication.Record) {
		s.hub.Broadcast("progress", progressEvent{Index: i, Total: n, Record: rec})
	})
	if err != nil && results == nil {
		s.fail(w, r, err)
		return
	}

	resp := updateAllResponse{Results: make([]itemResult, 0, len(results)), Failed: publication.Failed(results)}
	for _, res := range results {
		item := itemResult{Record: res.Record}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, item)
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
	s.refreshSession(req.WorkspaceRoot)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req app.Selection
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.session.Select(req.WorkspaceRoot, req.FilePath)
	writeJSON(w, http.StatusAccepted, s.session.Selection())
}

func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("reload") != "" {
		view, err := s.session.Reload(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}
	writeJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.serve(s.ctx, &s.upgrader, w, r)
}

// refreshSession reloads the session view when root is the selected
// workspace, so connected clients see the change.
func (s *Server) refreshSession(root string) {
	if sel := s.session.Selection(); sel.WorkspaceRoot != "" && sel.WorkspaceRoot == root {
		go s.session.Reload(s.ctx)
	}
}
