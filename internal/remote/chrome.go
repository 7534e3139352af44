package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/REZICS/PolyPress/internal/remote/scripts"
)

// ChromeSurface is a Surface backed by a Chrome tab driven over the
// DevTools protocol.
type ChromeSurface struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	onReport    func(Report)

	done      chan struct{}
	closeOnce sync.Once
}

// NewChromeSurface launches a browser window and prepares its tab. The
// browser outlives ctx; it is stopped by Close or by the user closing it.
func NewChromeSurface(ctx context.Context, opts SurfaceOptions) (Surface, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.Flag("mute-audio", false),
		chromedp.WindowSize(opts.Bounds.Width, opts.Bounds.Height),
		chromedp.Flag("window-position", fmt.Sprintf("%d,%d", opts.Bounds.X, opts.Bounds.Y)),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.DevTools && !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("auto-open-devtools-for-tabs", true))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &ChromeSurface{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		onReport:    opts.OnReport,
		done:        make(chan struct{}),
	}
	chromedp.ListenTarget(tabCtx, s.handleEvent)

	// First Run starts the browser.
	if err := chromedp.Run(tabCtx, runtime.AddBinding(scripts.ReportBinding)); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	go func() {
		<-tabCtx.Done()
		s.Close()
	}()
	return s, nil
}

func (s *ChromeSurface) handleEvent(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		if ev.Name != scripts.ReportBinding || s.onReport == nil {
			return
		}
		var r Report
		if err := json.Unmarshal([]byte(ev.Payload), &r); err != nil {
			return
		}
		s.onReport(r)
	case *inspector.EventDetached, *inspector.EventTargetCrashed, *target.EventTargetCrashed:
		// The listener runs on chromedp's event loop; closing from it
		// would deadlock.
		go s.Close()
	}
}

// Navigate loads url and waits for the load event.
func (s *ChromeSurface) Navigate(ctx context.Context, url string) error {
	return s.do(ctx, chromedp.Navigate(url))
}

// Evaluate runs script without awaiting any promise it returns.
func (s *ChromeSurface) Evaluate(ctx context.Context, script string) error {
	return s.do(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exception, err := runtime.Evaluate(script).WithAwaitPromise(false).Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			msg := exception.Text
			if exception.Exception != nil && exception.Exception.Description != "" {
				msg = exception.Exception.Description
			}
			return fmt.Errorf("script threw: %s", strings.TrimSpace(msg))
		}
		return nil
	}))
}

// do runs actions on the tab, stopping early when ctx is done.
func (s *ChromeSurface) do(ctx context.Context, actions ...chromedp.Action) error {
	select {
	case <-s.done:
		return ErrSurfaceClosed
	default:
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && errors.Is(err, context.Canceled) {
		select {
		case <-s.done:
			return ErrSurfaceClosed
		default:
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// Done is closed once the browser is gone.
func (s *ChromeSurface) Done() <-chan struct{} { return s.done }

// Close stops the browser.
func (s *ChromeSurface) Close() error {
	s.closeOnce.Do(func() {
		s.cancelTab()
		s.cancelAlloc()
		close(s.done)
	})
	return nil
}
