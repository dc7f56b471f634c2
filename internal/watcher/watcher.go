// Package watcher watches the PDF directory with fsnotify and reports
// debounced additions, changes and removals of matching files.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/docfind/pkg/utils"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// ErrStopped is returned when starting a watcher that has been stopped.
var ErrStopped = errors.New("watcher stopped")

// Watcher reports changes to the files directly inside one directory.
type Watcher struct {
	dir      string
	match    func(path string) bool
	onIndex  func(path string)
	onRemove func(path string)
	delay    time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	pending  *debouncer
	stopped  chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before onIndex fires.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// NewWatcher creates a watcher for dir. match filters which files are reported
// (nil reports every file). onIndex fires once a created or written file has
// been quiet for the debounce period; onRemove fires when a file is removed or
// renamed away.
func NewWatcher(dir string, match func(path string) bool, onIndex, onRemove func(path string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:      filepath.Clean(dir),
		match:    match,
		onIndex:  onIndex,
		onRemove: onRemove,
		delay:    defaultDebounce,
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger).Named("watcher")
	w.pending = newDebouncer(w.delay)
	return w
}

// Start creates the directory if needed and begins watching it in the
// background until ctx is cancelled or Stop is called. Starting twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	select {
	case <-w.stopped:
		return ErrStopped
	default:
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create watched directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.fsw = fsw
	w.logger.Info("watching directory", zap.String("dir", w.dir), zap.Duration("debounce", w.delay))
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopped:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", zap.Error(err))
		}
	}
}

// dispatch routes one event. Only files directly inside dir are considered.
func (w *Watcher) dispatch(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if filepath.Dir(path) != w.dir || (w.match != nil && !w.match(path)) {
		return
	}
	w.logger.Debug("file event", zap.Stringer("op", ev.Op), zap.String("path", path))
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.pending.cancel(path)
		if w.onRemove != nil {
			w.onRemove(path)
		}
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return
	}
	w.pending.schedule(path, func() {
		w.logger.Debug("file settled", zap.String("path", path))
		if w.onIndex != nil {
			w.onIndex(path)
		}
	})
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Stop ends watching and drops pending debounced events. It is safe to call
// more than once and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopped)
		w.pending.close()
		w.mu.Lock()
		if w.fsw != nil {
			_ = w.fsw.Close()
		}
		w.mu.Unlock()
	})
}
