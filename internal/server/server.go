// Package server exposes the boundary operations as a local JSON API
// and streams update progress and session changes over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/REZICS/PolyPress/internal/app"
	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/publication"
)

const shutdownTimeout = 5 * time.Second

// Server is the local HTTP API.
type Server struct {
	router   chi.Router
	svc      *app.Service
	session  *app.Session
	hub      *Hub
	upgrader websocket.Upgrader
	cfg      config.ServerConfig
	logger   *slog.Logger

	startOnce sync.Once
	ctx       context.Context
}

// New builds the router over svc. Call Start (or Run) before serving.
func New(svc *app.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := svc.Config()
	s := &Server{
		router: chi.NewRouter(),
		svc:    svc,
		hub:    NewHub(logger),
		cfg:    cfg.Server,
		logger: logger,
		ctx:    context.Background(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.session = app.NewSession(s.listForSession, cfg.Session.Debounce, func(v app.SessionView) {
		s.hub.Broadcast("session", v)
	})
	s.routes()
	return s
}

func (s *Server) listForSession(ctx context.Context, root, file string) ([]publication.Record, error) {
	return s.svc.ListPublicationsByFile(ctx, app.ListArgs{WorkspaceRoot: root, FilePath: file})
}

// checkOrigin accepts same-host pages, non-browser clients and the
// configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(s.cfg.AllowedOrigins, origin) || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
				"dur", time.Since(start), "id", chimiddleware.GetReqID(r.Context()))
		})
	})
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/workspace", func(r chi.Router) {
			r.Get("/cwd", s.handleCwd)
			r.Post("/pick", s.handlePick)
			r.Post("/coerce", s.handleCoerce)
			r.Post("/tree", s.handleTree)
			r.Post("/read", s.handleRead)
			r.Post("/drop", s.handleDrop)
		})
		r.Route("/publications", func(r chi.Router) {
			r.Post("/list", s.handleList)
			r.Post("/touch", s.handleTouch)
			r.Post("/remote-url", s.handleRemoteURL)
			r.Post("/update-all", s.handleUpdateAll)
		})
		r.Put("/session", s.handleSelect)
		r.Get("/session/publications", s.handleSessionView)
		r.Get("/events", s.handleEvents)
	})
}

// Start runs the websocket hub and forwards update events to it until
// ctx is done. It is idempotent.
func (s *Server) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.ctx = ctx
		go s.hub.Run(ctx)

		events, stop := s.svc.Remote().Subscribe()
		go func() {
			defer stop()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					s.hub.Broadcast("update", ev)
				}
			}
		}()
		context.AfterFunc(ctx, s.session.Close)
	})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
// An empty addr uses the configured one.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.cfg.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Start(ctx)

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("api stopped")
	return nil
}
