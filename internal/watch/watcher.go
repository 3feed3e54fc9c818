// Package watch calls back when any of a fixed set of input files changes.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ricesearch/rice-eval/internal/pkg/errors"
	"github.com/ricesearch/rice-eval/internal/pkg/logger"
)

// Watcher batches change events on its files and hands each batch to OnChange.
// Parent directories are watched so files replaced by rename are still seen.
type Watcher struct {
	files map[string]struct{} // absolute paths
	dirs  []string
	cfg   Config

	// Batch processing
	pendingMu    sync.Mutex
	pendingFiles map[string]struct{}
	batchTimer   *time.Timer

	// Serializes OnChange; stopped is set under it once Start returns
	runMu   sync.Mutex
	stopped bool

	// Stats
	statsMu  sync.Mutex
	batches  int
	lastSync time.Time

	// Lifecycle
	ctx   context.Context
	ready chan struct{}
	log   *logger.Logger
}

// Config configures a Watcher.
type Config struct {
	Paths      []string
	BatchDelay time.Duration // Default: 500ms
	OnChange   func(ctx context.Context, changed []string)
	Logger     *logger.Logger
}

// NewWatcher creates a watcher over cfg.Paths.
func NewWatcher(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.ValidationError("no paths to watch")
	}
	if cfg.OnChange == nil {
		return nil, errors.ValidationError("OnChange is required")
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	files := make(map[string]struct{}, len(cfg.Paths))
	dirSet := make(map[string]struct{})
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.IOError(p, err)
		}
		files[abs] = struct{}{}
		dirSet[filepath.Dir(abs)] = struct{}{}
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	return &Watcher{
		files:        files,
		dirs:         dirs,
		cfg:          cfg,
		pendingFiles: make(map[string]struct{}),
		ready:        make(chan struct{}),
		log:          &logger.Logger{Logger: cfg.Logger.With("component", "watcher")},
	}, nil
}

// Ready is closed once the watches are in place.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Start watches until ctx is cancelled. It returns only after any batch
// already being processed has finished, and no OnChange call starts later.
func (w *Watcher) Start(ctx context.Context) error {
	w.ctx = ctx

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "creating file watcher", err)
	}
	defer fsWatcher.Close()

	for _, dir := range w.dirs {
		if err := fsWatcher.Add(dir); err != nil {
			return errors.IOError(dir, err)
		}
	}
	close(w.ready)

	w.log.Info("Watching for changes", "files", len(w.files), "dirs", len(w.dirs))

	defer w.shutdown()

	// Event loop
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if _, ok := w.files[path]; !ok {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[path] = struct{}{}

	// Reset batch timer
	if w.batchTimer != nil {
		w.batchTimer.Stop()
	}
	w.batchTimer = time.AfterFunc(w.cfg.BatchDelay, w.processBatch)
}

func (w *Watcher) processBatch() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for path := range w.pendingFiles {
		files = append(files, path)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}
	sort.Strings(files)

	w.runMu.Lock()
	defer w.runMu.Unlock()

	if w.stopped || w.ctx.Err() != nil {
		return
	}

	w.statsMu.Lock()
	w.batches++
	w.lastSync = time.Now()
	w.statsMu.Unlock()

	w.log.Debug("Processing batch", "count", len(files))
	w.cfg.OnChange(w.ctx, files)
}

// shutdown cancels the pending batch and waits out a running one.
func (w *Watcher) shutdown() {
	w.pendingMu.Lock()
	if w.batchTimer != nil {
		w.batchTimer.Stop()
	}
	w.pendingMu.Unlock()

	w.runMu.Lock()
	w.stopped = true
	w.runMu.Unlock()
}

// Stats returns the number of processed batches and when the last one ran.
func (w *Watcher) Stats() (int, time.Time) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.batches, w.lastSync
}
