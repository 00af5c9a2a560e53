// Package watcher notifies subscribers when watched files change.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
)

// DefaultDebounce coalesces the burst of events an editor or exporter
// produces for one save.
const DefaultDebounce = 500 * time.Millisecond

// ChangeHandler is invoked with the cleaned path of a changed file.
type ChangeHandler func(ctx context.Context, path string) error

// Watcher watches a fixed set of files. Parent directories are watched
// rather than the files themselves so that files replaced by rename
// keep being tracked.
type Watcher struct {
	files    map[string]struct{}
	debounce time.Duration
	handler  ChangeHandler

	mu       sync.Mutex
	pending  map[string]*time.Timer
	stopped  bool
	inflight sync.WaitGroup
}

// New creates a watcher for paths.
func New(paths []string, debounce time.Duration, handler ChangeHandler) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	files := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		files[abs] = struct{}{}
	}

	return &Watcher{
		files:    files,
		debounce: debounce,
		handler:  handler,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run watches until ctx is done. Handler errors are logged and do not stop
// the watcher. Run returns after running handlers finish; a Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}
	logger.Infow("File watcher started", "files", len(w.files), "dirs", len(dirs))

	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			logger.Info("File watcher stopped")
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, tracked := w.files[name]; tracked {
				w.schedule(ctx, name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("File watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		if w.stopped || ctx.Err() != nil {
			w.mu.Unlock()
			return
		}
		w.inflight.Add(1)
		w.mu.Unlock()
		defer w.inflight.Done()

		logger.Infof("File changed: %s", path)
		if err := w.handler(ctx, path); err != nil {
			logger.Errorw("File change handler failed", "path", path, "error", err.Error())
		}
	})
}

// stopPending cancels scheduled handlers and waits for running ones.
func (w *Watcher) stopPending() {
	w.mu.Lock()
	w.stopped = true
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()

	w.inflight.Wait()
}
