// Package app exposes the boundary operations shared by the CLI and the
// HTTP API. Every operation validates its arguments before any I/O and
// logs its start, outcome and elapsed time.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/log"
	"github.com/REZICS/PolyPress/internal/publication"
	"github.com/REZICS/PolyPress/internal/remote"
	"github.com/REZICS/PolyPress/internal/textdecode"
	"github.com/REZICS/PolyPress/internal/workspace"
)

// Options configures a Service.
type Options struct {
	Config *config.Config
	Logger *log.Logger

	// Picker backs PickDirectory. Nil means no picker is available.
	Picker workspace.DirectoryPicker

	// Surface creates the update surface. Defaults to a Chrome window.
	Surface remote.SurfaceFactory

	// Now is the store clock. Defaults to time.Now.
	Now func() time.Time
}

// Service implements the boundary operations.
type Service struct {
	cfg      *config.Config
	resolver *config.Resolver
	log      *log.Logger
	picker   workspace.DirectoryPicker

	stores *publication.Registry
	pubs   *publication.Service
	remote *remote.Orchestrator
}

// New wires a Service. Nothing is opened until first use.
func New(opts Options) *Service {
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	l := opts.Logger
	if l == nil {
		l = log.Discard()
	}

	var bounds *remote.Bounds
	if cfg.Browser.Width > 0 && cfg.Browser.Height > 0 {
		bounds = &remote.Bounds{X: cfg.Browser.X, Y: cfg.Browser.Y, Width: cfg.Browser.Width, Height: cfg.Browser.Height}
	}
	orch := remote.New(remote.Options{
		Factory:  opts.Surface,
		Bounds:   bounds,
		Headless: cfg.Browser.Headless,
		ExecPath: cfg.Browser.ExecPath,
		DevTools: cfg.Browser.DevTools,
		Programs: remote.ProgramsFromConfig(cfg.Programs),
		Logger:   l.Logger,
	})

	s := &Service{
		cfg:      cfg,
		resolver: config.NewResolver(cfg),
		log:      l,
		picker:   opts.Picker,
		stores:   publication.NewRegistry(publication.Options{Logger: l.Logger, Now: opts.Now}),
		remote:   orch,
	}
	s.pubs = publication.NewService(s.stores, &pusher{orch: orch, resolver: s.resolver}, cfg.Read.MaxBytes, l.Logger)
	return s
}

// Config returns the global configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Remote returns the update orchestrator.
func (s *Service) Remote() *remote.Orchestrator { return s.remote }

// Stores returns the publication store registry.
func (s *Service) Stores() *publication.Registry { return s.stores }

// configFor returns the effective config of a workspace. A broken
// workspace config falls back to the global one.
func (s *Service) configFor(root string) *config.Config {
	cfg, err := s.resolver.ForRoot(root)
	if err != nil {
		s.log.Warn("ignoring workspace config", "root", root, "error", err)
		return s.cfg
	}
	return cfg
}

// WorkingDirectory returns the process working directory.
func (s *Service) WorkingDirectory(ctx context.Context) (dir string, err error) {
	done := s.log.Op("workspace.cwd")
	defer func() { done(err) }()
	return workspace.WorkingDirectory()
}

// PickDirectory asks the user for a directory. ok is false on cancel.
func (s *Service) PickDirectory(ctx context.Context) (dir string, ok bool, err error) {
	done := s.log.Op("workspace.pick")
	defer func() { done(err) }()

	if s.picker == nil {
		return "", false, workspace.ErrPickerUnavailable
	}
	start, err := workspace.WorkingDirectory()
	if err != nil {
		return "", false, err
	}
	return s.picker.Pick(ctx, start)
}

// CoerceToDirectory resolves raw to a directory. ok is false if unusable.
func (s *Service) CoerceToDirectory(ctx context.Context, raw string) (string, bool) {
	done := s.log.Op("workspace.coerce", "path", raw)
	dir, ok := workspace.CoerceToDir(raw)
	done(nil)
	return dir, ok
}

// TreeArgs bounds a listing. Nil fields use the workspace config.
type TreeArgs struct {
	MaxDepth   *int `json:"maxDepth,omitempty"`
	MaxEntries *int `json:"maxEntries,omitempty"`
}

// ListTree lists a workspace.
func (s *Service) ListTree(ctx context.Context, root string, args TreeArgs) (node *workspace.Node, err error) {
	done := s.log.Op("workspace.tree", "root", root)
	defer func() { done(err) }()

	cfg := s.configFor(root)
	opts := workspace.Options{MaxDepth: args.MaxDepth, MaxEntries: args.MaxEntries}
	if opts.MaxDepth == nil {
		opts.MaxDepth = &cfg.Tree.MaxDepth
	}
	if opts.MaxEntries == nil {
		opts.MaxEntries = &cfg.Tree.MaxEntries
	}
	return workspace.BuildTree(log.WithLogger(ctx, s.log), root, opts)
}

// ReadText reads a file for preview. maxBytes <= 0 uses the configured limit.
func (s *Service) ReadText(ctx context.Context, path string, maxBytes int64) (res textdecode.Result, err error) {
	done := s.log.Op("workspace.read", "path", path)
	defer func() { done(err) }()

	if maxBytes <= 0 {
		maxBytes = s.cfg.Read.MaxBytes
	}
	return textdecode.ReadFile(path, maxBytes)
}

// ResolveDropped resolves dropped paths, omitting unusable ones.
func (s *Service) ResolveDropped(ctx context.Context, paths []string) []string {
	done := s.log.Op("workspace.drop", "count", len(paths))
	out := workspace.ResolveDropped(paths)
	done(nil)
	return out
}

// ListArgs identifies a file in a workspace.
type ListArgs struct {
	WorkspaceRoot string `json:"workspaceRoot"`
	FilePath      string `json:"filePath"`
}

// ListPublicationsByFile lists a file's publications, seeding them on
// first use.
func (s *Service) ListPublicationsByFile(ctx context.Context, args ListArgs) (records []publication.Record, err error) {
	done := s.log.Op("publication.list", "root", args.WorkspaceRoot, "file", args.FilePath)
	defer func() { done(err) }()
	return s.stores.ListByFile(ctx, args.WorkspaceRoot, args.FilePath)
}

// TouchPublication records a local submission and starts the remote push.
func (s *Service) TouchPublication(ctx context.Context, args publication.TouchArgs) (rec *publication.Record, err error) {
	done := s.log.Op("publication.touch", "root", args.WorkspaceRoot, "id", args.PublicationID)
	defer func() { done(err) }()
	return s.pubs.Touch(ctx, args)
}

// SetRemoteURLArgs identifies a record and its new remote URL.
type SetRemoteURLArgs struct {
	WorkspaceRoot string `json:"workspaceRoot"`
	PublicationID string `json:"publicationId"`
	RemoteURL     string `json:"remoteUrl"`
}

// SetPublicationRemoteURL sets a record's remote URL.
func (s *Service) SetPublicationRemoteURL(ctx context.Context, args SetRemoteURLArgs) (rec *publication.Record, err error) {
	done := s.log.Op("publication.setRemoteUrl", "root", args.WorkspaceRoot, "id", args.PublicationID)
	defer func() { done(err) }()
	return s.stores.SetRemoteURL(ctx, args.WorkspaceRoot, args.PublicationID, args.RemoteURL)
}

// GetPublication returns one record, or nil.
func (s *Service) GetPublication(ctx context.Context, root, id string) (rec *publication.Record, err error) {
	done := s.log.Op("publication.get", "root", root, "id", id)
	defer func() { done(err) }()
	return s.stores.Get(ctx, root, id)
}

// UpdateAll touches every publication of a file that has a remote URL,
// one after another.
func (s *Service) UpdateAll(ctx context.Context, args ListArgs, progress func(i, n int, rec publication.Record)) ([]publication.ItemResult, error) {
	return s.UpdateAllAwait(ctx, args, progress, nil)
}

// UpdateAllAwait is UpdateAll where each successful touch is followed by
// await, once its push has reached the update surface. An await error
// fails that item.
func (s *Service) UpdateAllAwait(
	ctx context.Context,
	args ListArgs,
	progress func(i, n int, rec publication.Record),
	await func(ctx context.Context, rec publication.Record) error,
) (results []publication.ItemResult, err error) {
	done := s.log.Op("publication.updateAll", "root", args.WorkspaceRoot, "file", args.FilePath)
	defer func() { done(err) }()

	records, err := s.stores.ListByFile(ctx, args.WorkspaceRoot, args.FilePath)
	if err != nil {
		return nil, err
	}
	seq := publication.Sequencer{Pause: s.cfg.Bulk.Pause}
	return seq.Run(ctx, args.FilePath, records, func(ctx context.Context, rec publication.Record) error {
		touched, err := s.TouchPublication(ctx, publication.TouchArgs{
			WorkspaceRoot: args.WorkspaceRoot,
			PublicationID: rec.ID,
			ContentPath:   args.FilePath,
		})
		if err != nil || touched == nil || await == nil {
			return err
		}
		return await(ctx, *touched)
	}, progress)
}

// Close stops the update surface and closes every store. Failures are
// logged and joined.
func (s *Service) Close() error {
	var errs []error
	if err := s.remote.Close(); err != nil {
		s.log.Warn("closing update surface failed", "error", err)
		errs = append(errs, err)
	}
	if err := s.stores.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// pusher resolves the update flow from the workspace config before
// handing the request to the orchestrator.
type pusher struct {
	orch     *remote.Orchestrator
	resolver *config.Resolver
}

func (p *pusher) Push(ctx context.Context, req publication.PushRequest) error {
	cfg, err := p.resolver.ForRoot(req.WorkspaceRoot)
	if err != nil {
		cfg = p.resolver.Global()
	}
	programs := remote.ProgramsFromConfig(cfg.Programs)
	_, err = p.orch.Open(ctx, remote.OpenArgs{
		URL:         req.URL,
		Title:       req.Title,
		ContentText: req.ContentText,
		Program:     programs.Lookup(req.PlatformID),
	})
	return err
}
