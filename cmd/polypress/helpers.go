package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/REZICS/PolyPress/internal/history"
	"github.com/REZICS/PolyPress/internal/publication"
	"github.com/REZICS/PolyPress/internal/registry"
	"github.com/REZICS/PolyPress/internal/remote"
	"github.com/REZICS/PolyPress/internal/storage"
	"github.com/REZICS/PolyPress/internal/ui/progress"
)

// errRunFailed marks an update whose page flow reported a failure.
var errRunFailed = errors.New("update failed")

// resolveRoot picks the workspace root: --root, then the current
// workspace from the registry, then the working directory.
func resolveRoot(ctx context.Context) (string, error) {
	if root := rootOverride(ctx); root != "" {
		dir, ok := stateFrom(ctx).service(ctx).CoerceToDirectory(ctx, root)
		if !ok {
			return "", fmt.Errorf("workspace root %q is not a directory", root)
		}
		return dir, nil
	}
	st := stateFrom(ctx)
	if reg, err := registry.Load(st.registryPath); err == nil && reg.Current != "" {
		if info, err := os.Stat(reg.Current); err == nil && info.IsDir() {
			return reg.Current, nil
		}
	}
	return st.service(ctx).WorkingDirectory(ctx)
}

// resolveFile returns arg as an absolute path, or the active file of
// root when arg is empty.
func resolveFile(ctx context.Context, root, arg string) (string, error) {
	if arg = strings.TrimSpace(arg); arg != "" {
		return filepath.Abs(arg)
	}
	file, err := history.ActiveFile(stateFrom(ctx).historyPath, root)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	if file == "" {
		return "", fmt.Errorf("no FILE given and no active file in %s (use 'polypress select FILE')", root)
	}
	return file, nil
}

// rememberWorkspace records root as the current and most recent workspace.
func rememberWorkspace(ctx context.Context, root string) error {
	return storage.Update(stateFrom(ctx).registryPath, func(reg *registry.Registry) error {
		return reg.Open(root, time.Now())
	})
}

// resolvePublicationID accepts a full record id or a platform id, which
// is combined with file.
func resolvePublicationID(ref, file string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "::") {
		platformID, file, err := publication.ParseID(ref)
		if err != nil {
			return "", err
		}
		// Re-encode so a plain path works as well as a stored id.
		return publication.ID(platformID, file), nil
	}
	if _, ok := publication.LookupPlatform(ref); !ok {
		return "", fmt.Errorf("unknown platform %q", ref)
	}
	if file == "" {
		return "", fmt.Errorf("platform %q needs a FILE", ref)
	}
	return publication.ID(ref, file), nil
}

// runWatch follows update events of one subscription, run after run.
type runWatch struct {
	events  <-chan remote.Event
	timeout time.Duration
	spin    *progress.Spinner

	// finished is the id of the last run that reached a terminal stage.
	// Its late events are skipped.
	finished string
}

// wait blocks until the next run reaches a terminal stage, reporting
// progress on spin. A failed or closed run is an error.
func (w *runWatch) wait(ctx context.Context) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("no result after %s", w.timeout)
			}
			return ctx.Err()
		case ev, ok := <-w.events:
			if !ok {
				return remote.ErrSurfaceClosed
			}
			if ev.RunID != "" && ev.RunID == w.finished {
				continue
			}
			if w.spin != nil {
				w.spin.Set(stageMessage(ev))
			}
			if ev.Stage.Terminal() {
				w.finished = ev.RunID
			}
			switch ev.Stage {
			case remote.StageFailed:
				return fmt.Errorf("%w: %s", errRunFailed, cmp.Or(ev.Error, ev.Text, "no reason given"))
			case remote.StageClosed:
				return remote.ErrSurfaceClosed
			}
			if ev.Stage.Terminal() {
				return nil
			}
		}
	}
}

func stageMessage(ev remote.Event) string {
	if ev.Text != "" {
		return fmt.Sprintf("%s: %s", ev.Stage, ev.Text)
	}
	return string(ev.Stage)
}
