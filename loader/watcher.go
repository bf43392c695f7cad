package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/logging"
)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long the watcher waits after the last file event
	// before reloading, coalescing editor save bursts into one reload.
	Debounce time.Duration

	// Logger receives reload outcomes.
	Logger logging.Logger
}

// Watcher keeps a registry in sync with a directory of dialog files. A
// reload that fails to parse or validate is logged and skipped; the
// registry keeps serving the previous definitions.
type Watcher struct {
	dir      string
	registry *core.Registry
	debounce time.Duration
	logger   logging.Logger
}

// NewWatcher creates a watcher for dir feeding registry.
func NewWatcher(dir string, registry *core.Registry, optFns ...func(o *WatcherOptions)) *Watcher {
	opts := WatcherOptions{
		Debounce: 250 * time.Millisecond,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Watcher{
		dir:      dir,
		registry: registry,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
}

// Run loads the directory once and then watches it until ctx is canceled.
// The initial load failing is an error; later reload failures are not.
func (w *Watcher) Run(ctx context.Context) error {
	if err := LoadDirInto(w.dir, w.registry); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.logger.Info("Watching dialog directory", "dir", w.dir)

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if !isDialogFile(ev.Name) {
				continue
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				reload = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}

				timer.Reset(w.debounce)
			}
		case <-reload:
			timer = nil
			reload = nil

			if err := LoadDirInto(w.dir, w.registry); err != nil {
				w.logger.Error("Dialog reload failed", "dir", w.dir, "error", err)
				continue
			}

			w.logger.Info("Dialogs reloaded", "dir", w.dir, "dialogs", len(w.registry.IDs()))
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("Watcher error", "dir", w.dir, "error", err)
		}
	}
}
