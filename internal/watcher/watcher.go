// Package watcher keeps the corpus in step with the documents directory using fsnotify.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/pagesearch/pkg/utils"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Handler receives debounced changes for documents under the watched root.
// name is the slash-separated path relative to the root.
type Handler interface {
	Match(name string) bool
	Changed(ctx context.Context, name, path string) error
	Removed(ctx context.Context, name string) error
}

// Watcher watches a documents directory recursively and forwards file changes to a Handler.
type Watcher struct {
	root     string
	handler  Handler
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	done    chan struct{}
	started bool
	stopped sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before its change is delivered.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root.
func NewWatcher(root string, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		handler:  handler,
		debounce: defaultDebounce,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger)
	return w
}

// Start begins watching. It creates the root if missing and returns once the
// watches are installed; events are handled until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addTree(fw, w.root); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.ctx = ctx
	w.started = true
	w.logger.Info("watching documents directory", zap.String("root", w.root), zap.Duration("debounce", w.debounce))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	name, ok := w.relName(ev.Name)
	if !ok {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("document", name))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.handleNewDirectory(ev.Name)
			return
		}
		if w.handler.Match(name) {
			w.schedule(name, ev.Name)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(name)
		if w.handler.Match(name) {
			w.deliverRemove(name)
		}
	}
}

// handleNewDirectory watches a directory that appeared after Start and
// schedules every matching file already inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}
	if err := addTree(fw, dir); err != nil {
		w.logger.Warn("failed to watch new directory", zap.String("path", dir), zap.Error(err))
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if name, ok := w.relName(path); ok && w.handler.Match(name) {
			w.schedule(name, path)
		}
		return nil
	})
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

// relName returns the slash-separated path of p relative to the root, or false
// when p is the root itself or lies outside it.
func (w *Watcher) relName(p string) (string, bool) {
	rel, err := filepath.Rel(w.root, filepath.Clean(p))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// schedule delivers a change for name once no further event arrives within the debounce window.
func (w *Watcher) schedule(name, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.pending[name]; ok {
		t.Stop()
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		ctx, started := w.ctx, w.started
		w.mu.Unlock()
		if !started {
			return
		}
		if err := w.handler.Changed(ctx, name, path); err != nil {
			w.logger.Warn("failed to apply document change", zap.String("document", name), zap.Error(err))
		}
	})
}

func (w *Watcher) cancel(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[name]; ok {
		t.Stop()
		delete(w.pending, name)
	}
}

func (w *Watcher) deliverRemove(name string) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if err := w.handler.Removed(ctx, name); err != nil {
		w.logger.Warn("failed to apply document removal", zap.String("document", name), zap.Error(err))
	}
}

// Stop stops the watcher and drops pending changes. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopped.Do(func() { close(w.done) })
}
