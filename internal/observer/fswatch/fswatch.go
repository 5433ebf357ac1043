// Package fswatch implements the Filesystem Observer (spec §4.2): it
// watches a configurable list of directories, coalesces near-duplicate
// events for the same path, canonicalises OS-native rename-as-two-events
// sequences into a single renamed action, and registers everything onto
// the Action Registry.
package fswatch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"deskloop/internal/action"
	"deskloop/internal/async"
	"deskloop/internal/logging"
)

// CoalesceWindow is how long near-duplicate events for the same path
// are merged into one (spec §4.2).
const CoalesceWindow = 50 * time.Millisecond

// Registry is the subset of *action.Registry the observer depends on.
type Registry interface {
	Register(actionType action.Type, details map[string]any, source action.Source, metadata map[string]any) (uint64, error)
}

// Observer watches a set of directories and emits file_* actions.
type Observer struct {
	registry Registry
	logger   logging.Logger

	mu      sync.Mutex
	dirs    []string
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	pending map[string]*pendingEvent
}

type pendingEvent struct {
	op      fsnotify.Op
	size    int64
	timer   *time.Timer
	removed string // never set or read; rename pairing matches pending Remove entries by their map key
}

// New constructs an Observer. Call Watch to begin watching dirs.
func New(registry Registry, logger logging.Logger) *Observer {
	return &Observer{
		registry: registry,
		logger:   logging.OrNop(logger),
		pending:  make(map[string]*pendingEvent),
	}
}

// Watch tears down any existing watches and rebuilds atomically against
// the given directories (spec §4.2: "on configuration change, tears
// down existing watches and rebuilds atomically"). Home-relative paths
// are expected to already be expanded by internal/config.
func (o *Observer) Watch(ctx context.Context, dirs []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.watcher != nil {
		_ = o.watcher.Close()
		close(o.stopCh)
		o.watcher = nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	clean := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			abs = d
		}
		if err := fsWatcher.Add(abs); err != nil {
			o.logger.Warn("fswatch: cannot watch %s: %v", abs, err)
			continue
		}
		clean = append(clean, abs)
	}

	o.dirs = clean
	o.watcher = fsWatcher
	o.stopCh = make(chan struct{})

	async.Go(o.logger, "fswatch.loop", o.watchLoop)
	if ctx != nil {
		async.Go(o.logger, "fswatch.loop.ctx", func() {
			<-ctx.Done()
			o.Stop()
		})
	}
	return nil
}

// Stop terminates the current watch.
func (o *Observer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.watcher != nil {
		_ = o.watcher.Close()
		o.watcher = nil
	}
	if o.stopCh != nil {
		select {
		case <-o.stopCh:
		default:
			close(o.stopCh)
		}
	}
}

func (o *Observer) watchLoop() {
	o.mu.Lock()
	watcher := o.watcher
	stopCh := o.stopCh
	o.mu.Unlock()
	if watcher == nil {
		return
	}

	for {
		select {
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			o.coalesce(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			o.logger.Warn("fswatch error: %v", err)
		}
	}
}

// coalesce merges events for the same path arriving within
// CoalesceWindow, and pairs a Remove immediately followed by a Create
// (same directory, within the window) into a single renamed action —
// the canonicalised taxonomy decision recorded in SPEC_FULL.md §12.2.
func (o *Observer) coalesce(event fsnotify.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if event.Op&fsnotify.Remove != 0 {
		o.pending[event.Name] = &pendingEvent{op: event.Op}
		o.scheduleFlushLocked(event.Name)
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if match := o.findRenamePairLocked(event.Name); match != "" {
			if p := o.pending[match]; p != nil && p.timer != nil {
				p.timer.Stop()
			}
			delete(o.pending, match)
			o.emitRename(match, event.Name)
			return
		}
	}

	existing, ok := o.pending[event.Name]
	if ok && existing.timer != nil {
		existing.timer.Stop()
		existing.op |= event.Op
		o.scheduleFlushLocked(event.Name)
		return
	}

	o.pending[event.Name] = &pendingEvent{op: event.Op}
	o.scheduleFlushLocked(event.Name)
}

// findRenamePairLocked looks for a pending Remove in the same directory
// as a new Create, within the coalescing window. Returns the matched
// removed path, or "" if none.
func (o *Observer) findRenamePairLocked(createdPath string) string {
	dir := filepath.Dir(createdPath)
	for path, p := range o.pending {
		if p.op&fsnotify.Remove != 0 && filepath.Dir(path) == dir {
			return path
		}
	}
	return ""
}

func (o *Observer) scheduleFlushLocked(path string) {
	p := o.pending[path]
	p.timer = time.AfterFunc(CoalesceWindow, func() {
		o.mu.Lock()
		cur, ok := o.pending[path]
		if !ok {
			o.mu.Unlock()
			return
		}
		delete(o.pending, path)
		o.mu.Unlock()
		o.emit(path, cur.op)
	})
}

func (o *Observer) emit(path string, op fsnotify.Op) {
	eventType := classify(op)
	details := action.FileOperation{
		EventType:     eventType,
		SrcPath:       path,
		FileExtension: filepath.Ext(path),
		FileSize:      statSize(path),
	}.AsMap()

	actionType := action.TypeFileModified
	switch eventType {
	case "created":
		actionType = action.TypeFileCreated
	case "deleted":
		actionType = action.TypeFileDeleted
	}

	if _, err := o.registry.Register(actionType, details, action.SourceFileWatcher, nil); err != nil {
		o.logger.Debug("fswatch: action dropped: %v", err)
	}
}

func (o *Observer) emitRename(srcPath, destPath string) {
	details := action.FileOperation{
		EventType:     "renamed",
		SrcPath:       srcPath,
		DestPath:      destPath,
		FileExtension: filepath.Ext(destPath),
		FileSize:      statSize(destPath),
	}.AsMap()
	if _, err := o.registry.Register(action.TypeFileRenamed, details, action.SourceFileWatcher, nil); err != nil {
		o.logger.Debug("fswatch: action dropped: %v", err)
	}
}

func classify(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "created"
	case op&fsnotify.Remove != 0:
		return "deleted"
	case op&fsnotify.Rename != 0:
		return "moved"
	default:
		return "modified"
	}
}
