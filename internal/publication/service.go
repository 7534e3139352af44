package publication

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/REZICS/PolyPress/internal/textdecode"
)

// BlankURL is loaded when a record has no remote URL.
const BlankURL = "about:blank"

// PushRequest describes one remote update.
type PushRequest struct {
	WorkspaceRoot string
	PublicationID string
	PlatformID    string
	URL           string
	Title         string
	ContentText   string
}

// Pusher delivers a file's text to its remote page.
// Push returns once the update has been started, not finished.
type Pusher interface {
	Push(ctx context.Context, req PushRequest) error
}

// TouchArgs identifies the record to touch and the file to push.
type TouchArgs struct {
	WorkspaceRoot string `json:"workspaceRoot"`
	PublicationID string `json:"publicationId"`
	ContentPath   string `json:"contentPath"`
}

// Service records local submissions and dispatches remote pushes.
type Service struct {
	stores   *Registry
	pusher   Pusher
	logger   *slog.Logger
	maxBytes int64
}

// NewService returns a Service over stores. A nil pusher disables remote
// pushes; maxBytes bounds the content read (0 uses the decoder default).
func NewService(stores *Registry, pusher Pusher, maxBytes int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{stores: stores, pusher: pusher, logger: logger, maxBytes: maxBytes}
}

// Stores returns the underlying registry.
func (s *Service) Stores() *Registry { return s.stores }

// Touch stamps the record, reads the content file and starts the remote
// push in the background. It returns the record as persisted without
// waiting for the push. An unknown id yields nil and pushes nothing.
func (s *Service) Touch(ctx context.Context, args TouchArgs) (*Record, error) {
	if err := requireArgs(
		"workspaceRoot", args.WorkspaceRoot,
		"publicationId", args.PublicationID,
		"contentPath", args.ContentPath,
	); err != nil {
		return nil, err
	}

	rec, err := s.stores.RecordLocalSubmission(ctx, args.WorkspaceRoot, args.PublicationID)
	if err != nil || rec == nil {
		return nil, err
	}

	content, err := textdecode.ReadFile(strings.TrimSpace(args.ContentPath), s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	req := Request(rec, content.Text)
	req.WorkspaceRoot = strings.TrimSpace(args.WorkspaceRoot)
	s.DispatchRemotePush(ctx, req)
	return rec, nil
}

// Request builds the push request for a record.
func Request(rec *Record, text string) PushRequest {
	url := strings.TrimSpace(rec.RemoteURL())
	if url == "" {
		url = BlankURL
	}
	title := strings.TrimSpace("Update: " + rec.PlatformName)
	if rec.PlatformName == "" {
		title = "Update"
	}
	return PushRequest{
		PublicationID: rec.ID,
		PlatformID:    rec.PlatformID,
		URL:           url,
		Title:         title,
		ContentText:   text,
	}
}

// DispatchRemotePush hands req to the pusher. The pusher only starts
// the page run, so dispatches happen in call order without waiting for
// the page. Failures are logged only.
func (s *Service) DispatchRemotePush(ctx context.Context, req PushRequest) {
	if s.pusher == nil {
		s.logger.Debug("remote push skipped, no pusher", "id", req.PublicationID)
		return
	}
	if err := s.pusher.Push(context.WithoutCancel(ctx), req); err != nil {
		s.logger.Error("remote push failed", "id", req.PublicationID, "url", req.URL, "error", err)
		return
	}
	s.logger.Debug("remote push started", "id", req.PublicationID, "url", req.URL)
}
