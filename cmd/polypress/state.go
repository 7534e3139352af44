package main

import (
	"context"
	"strings"
	"sync"

	"github.com/REZICS/PolyPress/internal/app"
	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/log"
)

type stateKey struct{}
type rootKey struct{}

// state is shared by all commands of one invocation.
type state struct {
	cfg          *config.Config
	registryPath string
	historyPath  string

	build func(*log.Logger) *app.Service

	mu  sync.Mutex
	svc *app.Service
}

func withState(ctx context.Context, st *state) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

func stateFrom(ctx context.Context) *state {
	if st, ok := ctx.Value(stateKey{}).(*state); ok {
		return st
	}
	cfg := config.Default()
	return newState(&cfg)
}

// service returns the boundary service, building it on first use.
func (s *state) service(ctx context.Context) *app.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc == nil {
		s.svc = s.build(log.FromContext(ctx))
	}
	return s.svc
}

// close closes the service, if built.
func (s *state) close() error {
	s.mu.Lock()
	svc := s.svc
	s.mu.Unlock()
	if svc == nil {
		return nil
	}
	return svc.Close()
}

// withRoot overrides the workspace root for the command.
func withRoot(ctx context.Context, root string) context.Context {
	return context.WithValue(ctx, rootKey{}, strings.TrimSpace(root))
}

func rootOverride(ctx context.Context) string {
	root, _ := ctx.Value(rootKey{}).(string)
	return root
}
