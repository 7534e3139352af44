package config

import (
	"context"
	"path/filepath"
	"sync"
)

type resolverKey struct{}

// Resolver provides lazy per-workspace config resolution with caching.
type Resolver struct {
	global *Config

	mu    sync.Mutex
	cache map[string]*Config // root -> merged config
}

// NewResolver creates a Resolver backed by the given global config.
func NewResolver(global *Config) *Resolver {
	return &Resolver{
		global: global,
		cache:  make(map[string]*Config),
	}
}

// ForRoot returns the effective config for a workspace root.
// Results are cached per resolved root.
func (r *Resolver) ForRoot(root string) (*Config, error) {
	if root == "" {
		return r.global, nil
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[root]; ok {
		return cached, nil
	}

	local, err := LoadLocal(root)
	if err != nil {
		return nil, err
	}

	merged := MergeLocal(r.global, local)
	r.cache[root] = merged
	return merged, nil
}

// Global returns the global config (without any workspace overrides).
func (r *Resolver) Global() *Config {
	return r.global
}

// WithResolver returns a new context with the Resolver stored in it.
func WithResolver(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, resolverKey{}, r)
}

// ResolverFromContext returns the Resolver from context, or a resolver
// over the defaults if none is stored.
func ResolverFromContext(ctx context.Context) *Resolver {
	if r, ok := ctx.Value(resolverKey{}).(*Resolver); ok {
		return r
	}
	cfg := Default()
	return NewResolver(&cfg)
}
