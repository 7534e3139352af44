package remote

import (
	"context"
	"errors"
)

// ErrSurfaceClosed is returned by a Surface used after it closed.
var ErrSurfaceClosed = errors.New("update surface closed")

// Bounds is a window rectangle in screen pixels.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultBounds is used when neither the caller nor the config gives a size.
var DefaultBounds = Bounds{Width: 1200, Height: 900}

func (b *Bounds) usable() bool {
	return b != nil && b.Width > 0 && b.Height > 0
}

// Surface is a browser page the orchestrator can drive.
type Surface interface {
	// Navigate loads url and returns once the page has finished loading.
	Navigate(ctx context.Context, url string) error

	// Evaluate runs script in the page. A thrown exception is an error.
	Evaluate(ctx context.Context, script string) error

	// Done is closed once the surface is gone, whoever closed it.
	Done() <-chan struct{}

	Close() error
}

// SurfaceOptions configures a new surface.
type SurfaceOptions struct {
	Bounds   Bounds
	Title    string
	Headless bool
	ExecPath string
	DevTools bool

	// OnReport receives reports the page sends through the report binding.
	OnReport func(Report)
}

// SurfaceFactory creates a surface.
type SurfaceFactory func(ctx context.Context, opts SurfaceOptions) (Surface, error)
