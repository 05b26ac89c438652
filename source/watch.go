package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ============================================================================
// WATCHED — File source cached until the file changes
// ============================================================================
// The cached Dataset is immutable, so concurrent runs may share it. The
// watcher marks the cache stale on write/create/rename/remove events for the
// file; the next Load after the debounce window re-reads it.
//
// The parent directory is watched rather than the file, so editors that save
// by rename keep being tracked.
// ============================================================================

// Watched wraps a File with an fsnotify-invalidated cache.
type Watched struct {
	file     *File
	logger   *zap.Logger
	debounce time.Duration

	mu         sync.Mutex
	cached     *Dataset
	generation uint64
	pendingAt  time.Time // zero when no event is waiting
	watcher    *fsnotify.Watcher
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// WatchOption configures a Watched source.
type WatchOption func(*Watched)

// WithDebounce sets how long events must settle before the cache is dropped.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watched) { w.debounce = d }
}

// WithWatchLogger sets the logger for watcher events.
func WithWatchLogger(logger *zap.Logger) WatchOption {
	return func(w *Watched) { w.logger = logger }
}

// NewWatched wraps file. Call Start to begin watching; until then every Load
// after the first is served from the cache.
func NewWatched(file *File, opts ...WatchOption) *Watched {
	w := &Watched{
		file:     file,
		logger:   zap.NewNop(),
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watched) Name() string { return "watched:" + w.file.Path }

// Load returns the cached dataset, reading the file when the cache is empty.
func (w *Watched) Load(ctx context.Context) (*Dataset, error) {
	w.mu.Lock()
	if w.cached != nil {
		ds := w.cached
		w.mu.Unlock()
		return ds, nil
	}
	gen := w.generation
	w.mu.Unlock()

	ds, err := w.file.Load(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	// An invalidation that raced with this read wins; the next Load retries.
	if w.generation == gen {
		w.cached = ds
	}
	w.mu.Unlock()
	return ds, nil
}

// Invalidate drops the cached dataset.
func (w *Watched) Invalidate() {
	w.mu.Lock()
	w.cached = nil
	w.generation++
	w.mu.Unlock()
}

// Start begins watching in a goroutine. It is a no-op when already running.
func (w *Watched) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(w.file.Path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.logger.Info("watching dataset", zap.String("path", w.file.Path))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watched) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh, watcher := w.stopCh, w.doneCh, w.watcher
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	if err := watcher.Close(); err != nil {
		w.logger.Warn("closing watcher", zap.Error(err))
	}
}

func (w *Watched) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	target := filepath.Clean(w.file.Path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			w.logger.Debug("dataset changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			w.mu.Lock()
			w.pendingAt = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			w.mu.Lock()
			settled := !w.pendingAt.IsZero() && time.Since(w.pendingAt) >= w.debounce
			if settled {
				w.pendingAt = time.Time{}
				w.cached = nil
				w.generation++
			}
			w.mu.Unlock()
			if settled {
				w.logger.Info("dataset cache invalidated", zap.String("path", w.file.Path))
			}
		}
	}
}
