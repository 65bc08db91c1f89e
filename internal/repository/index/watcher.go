package index

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultReloadDebounce = 500 * time.Millisecond

// Watcher reloads the index when an offline ingestion process rewrites the index file.
type Watcher struct {
	ix       *Index
	fsw      *fsnotify.Watcher
	target   string
	debounce time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	onReload func()
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReloadDebounce sets the quiet period before a reload.
func WithReloadDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithOnReload registers a callback invoked after a successful reload.
func WithOnReload(fn func()) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher watches the directory holding the index file.
// The directory is watched rather than the file so atomic renames are observed.
func NewWatcher(ix *Index, logger *zap.Logger, opts ...WatcherOption) (*Watcher, error) {
	if ix.Path() == "" {
		return nil, fmt.Errorf("index has no persistence path")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		ix:       ix,
		fsw:      fsw,
		target:   filepath.Clean(ix.Path()),
		debounce: defaultReloadDebounce,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsw.Add(filepath.Dir(w.target)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.target), err)
	}
	return w, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Stop cancels the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.isRelevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Index watcher error", zap.Error(err))
		case <-timerC:
			timerC = nil
			if w.ix.Reload() {
				w.logger.Info("Document index reloaded", zap.Int("documents", w.ix.Len()))
				if w.onReload != nil {
					w.onReload()
				}
			}
		}
	}
}

func (w *Watcher) isRelevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
