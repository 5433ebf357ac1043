package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"deskloop/internal/async"
	"deskloop/internal/logging"
)

const defaultConfigWatchDebounce = 750 * time.Millisecond

// Watcher monitors config.yaml for edits and calls a reload hook after a
// debounce window, so the Filesystem Observer can rebuild its watch set
// from a freshly reloaded watch.dirs (spec §4.2, §9).
type Watcher struct {
	path     string
	logger   logging.Logger
	debounce time.Duration
	onReload func(Config, Metadata)
	opts     []Option

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	once    sync.Once
}

// WatcherOption customizes Watcher behavior.
type WatcherOption func(*Watcher)

// WithWatchDebounce sets the debounce window for reloads.
func WithWatchDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for watcher diagnostics.
func WithWatchLogger(l logging.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logging.OrNop(l) }
}

// NewWatcher constructs a Watcher for path, invoking onReload with the
// freshly loaded Config (and its Metadata) after every debounced change.
// Every reload calls Load with only WithPath(path), so it uses Load's
// default environment lookup and file reader; NewWatcher accepts no
// Load options (WithEnv/WithFileReader cannot be passed through).
func NewWatcher(path string, onReload func(Config, Metadata), opts ...WatcherOption) (*Watcher, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("config path required")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.Clean(path)

	w := &Watcher{
		path:     path,
		logger:   logging.OrNop(nil),
		debounce: defaultConfigWatchDebounce,
		onReload: onReload,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching the config file's parent directory for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("config watcher is nil")
	}
	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return nil
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsWatcher
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		w.mu.Lock()
		w.watcher = nil
		w.mu.Unlock()
		return err
	}

	async.Go(w.logger, "config.watch", w.watchLoop)
	if ctx != nil {
		async.Go(w.logger, "config.watch.ctx", func() {
			<-ctx.Done()
			w.Stop()
		})
	}
	return nil
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
			w.watcher = nil
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name == "" {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if filepath.Clean(event.Name) != w.path {
		return
	}
	w.scheduleReload()
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		cfg, meta, err := Load(append([]Option{WithPath(w.path)}, w.opts...)...)
		if err != nil {
			w.logger.Warn("config reload failed: %v", err)
			return
		}
		if w.onReload != nil {
			w.onReload(cfg, meta)
		}
	})
}
