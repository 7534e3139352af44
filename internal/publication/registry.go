package publication

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrRegistryClosed is returned by Open after CloseAll.
var ErrRegistryClosed = errors.New("publication registry closed")

// Registry caches one open Store per resolved workspace root for the
// life of the process. Concurrent opens of the same root share a single
// Store and a single schema initialization.
type Registry struct {
	opts Options

	group singleflight.Group

	mu     sync.Mutex
	stores map[string]*Store
	closed bool
}

// NewRegistry returns an empty registry. Stores it opens use opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:   opts.withDefaults(),
		stores: make(map[string]*Store),
	}
}

func (r *Registry) cached(key string) (*Store, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, ErrRegistryClosed
	}
	s, ok := r.stores[key]
	return s, ok, nil
}

// Open returns the store of root, opening it on first use.
func (r *Registry) Open(ctx context.Context, root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, required("workspaceRoot")
	}
	key, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	if s, ok, err := r.cached(key); err != nil || ok {
		return s, err
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if s, ok, err := r.cached(key); err != nil || ok {
			return s, err
		}
		s, err := Open(ctx, key, r.opts)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			s.Close()
			return nil, ErrRegistryClosed
		}
		r.stores[key] = s
		r.opts.Logger.Debug("publication store opened", "root", key)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// Roots returns the roots with an open store, sorted.
func (r *Registry) Roots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	roots := make([]string, 0, len(r.stores))
	for root := range r.stores {
		roots = append(roots, root)
	}
	slices.Sort(roots)
	return roots
}

// CloseAll closes every open store and refuses further opens. Every
// store is closed even when some fail; the failures are joined.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*Store)
	r.closed = true
	r.mu.Unlock()

	var errs []error
	for root, s := range stores {
		if err := s.Close(); err != nil {
			r.opts.Logger.Warn("closing publication store failed", "root", root, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListByFile lists the records of filePath in root's store.
func (r *Registry) ListByFile(ctx context.Context, root, filePath string) ([]Record, error) {
	if err := requireArgs("workspaceRoot", root, "filePath", filePath); err != nil {
		return nil, err
	}
	s, err := r.Open(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.ListByFile(ctx, filePath)
}

// Get returns a record of root's store, or nil.
func (r *Registry) Get(ctx context.Context, root, id string) (*Record, error) {
	if err := requireArgs("workspaceRoot", root, "publicationId", id); err != nil {
		return nil, err
	}
	s, err := r.Open(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// RecordLocalSubmission stamps a record of root's store.
func (r *Registry) RecordLocalSubmission(ctx context.Context, root, id string) (*Record, error) {
	if err := requireArgs("workspaceRoot", root, "publicationId", id); err != nil {
		return nil, err
	}
	s, err := r.Open(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.RecordLocalSubmission(ctx, id)
}

// SetRemoteURL sets the remote URL of a record of root's store.
func (r *Registry) SetRemoteURL(ctx context.Context, root, id, remoteURL string) (*Record, error) {
	if err := requireArgs("workspaceRoot", root, "publicationId", id, "remoteUrl", remoteURL); err != nil {
		return nil, err
	}
	s, err := r.Open(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.SetRemoteURL(ctx, id, remoteURL)
}

// requireArgs takes name/value pairs and reports the first blank value.
func requireArgs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return required(pairs[i])
		}
	}
	return nil
}
