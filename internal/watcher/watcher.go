// Package watcher re-ingests markdown files as they change on disk.
// Content-addressed chunk ids make repeated ingestion overwrite in place,
// so a change event can simply be replayed through the normal pipeline.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"docrag/internal/loader"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches directories and invokes callbacks for markdown changes.
type Watcher struct {
	roots    []string
	onChange func(path string)
	onRemove func(path string)
	debounce time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the per-path debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over roots. onChange fires for created or modified
// markdown files, onRemove for deleted or renamed-away ones; both are
// debounced per path.
func New(roots []string, onChange, onRemove func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		roots:    roots,
		onChange: onChange,
		onRemove: onRemove,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Subdirectories existing at start and
// directories created while running are both watched.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, root := range w.roots {
		if err := addRecursive(fsw, root); err != nil {
			return err
		}
	}
	w.logger.Debug("watching", zap.Strings("roots", w.roots))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		// New directories need to be added to the watch set themselves.
		if err := addRecursive(fsw, event.Name); err == nil {
			w.logger.Debug("watching new path", zap.String("path", event.Name))
		}
	}
	if !loader.IsMarkdown(event.Name) {
		return
	}
	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.fire(event.Name, w.onRemove)
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		w.fire(event.Name, w.onChange)
	}
}

// fire schedules the callback after the debounce window, replacing any
// pending timer for the same path so bursts collapse to one call.
func (w *Watcher) fire(path string, fn func(string)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		fn(path)
	})
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
