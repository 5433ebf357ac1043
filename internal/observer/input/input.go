// Package input implements the Input Observer (spec §4.2): it buffers
// captured keystrokes into KeySequence actions, flushing on focus
// change, idle timeout, or buffer overflow, and emits app_focus actions
// on every foreground-application change.
//
// Global key capture and foreground-window polling are OS-specific and
// out of scope for this module (see Backend below); the buffering,
// flush-trigger, and coalescing logic that sits on top of a capture
// backend is what this package actually implements and tests.
package input

import (
	"strings"
	"sync"
	"time"

	"deskloop/internal/action"
	"deskloop/internal/async"
	"deskloop/internal/logging"
)

// IdleFlush is the idle-keyboard flush trigger (spec §4.2).
const IdleFlush = 3 * time.Second

// MaxBufferTokens is the buffer-overflow flush trigger (spec §4.2).
const MaxBufferTokens = 64

// KeyEvent is one captured key, as delivered by a Backend.
type KeyEvent struct {
	Token       string // e.g. "h", "ctrl+c", "Alt+Tab"
	Application string // foreground application at capture time
	At          time.Time
}

// FocusEvent is a foreground-application transition, as delivered by a
// Backend.
type FocusEvent struct {
	Application string
	At          time.Time
}

// Backend abstracts the OS-specific half of input capture: a real
// implementation would hook global keyboard events and foreground-window
// changes (X11/Win32/Accessibility APIs, depending on platform); this
// package only consumes the two channels it produces.
type Backend interface {
	Keys() <-chan KeyEvent
	Focus() <-chan FocusEvent
	Start() error
	Stop()
}

// Registry is the subset of *action.Registry the observer depends on.
type Registry interface {
	Register(actionType action.Type, details map[string]any, source action.Source, metadata map[string]any) (uint64, error)
}

// Observer buffers keystrokes and emits key_sequence/app_focus actions.
type Observer struct {
	backend  Backend
	registry Registry
	logger   logging.Logger

	mu          sync.Mutex
	buf         []string
	bufStart    time.Time
	application string
	idleTimer   *time.Timer
	stopCh      chan struct{}
}

// New constructs an Observer over the given capture backend.
func New(backend Backend, registry Registry, logger logging.Logger) *Observer {
	return &Observer{
		backend:  backend,
		registry: registry,
		logger:   logging.OrNop(logger),
	}
}

// Start begins consuming the backend's event channels until Stop is
// called.
func (o *Observer) Start() error {
	if err := o.backend.Start(); err != nil {
		return err
	}
	o.stopCh = make(chan struct{})
	async.Go(o.logger, "input.observer", o.loop)
	return nil
}

// Stop flushes any buffered keystrokes and terminates the backend.
func (o *Observer) Stop() {
	select {
	case <-o.stopCh:
	default:
		close(o.stopCh)
	}
	o.flush()
	o.backend.Stop()
}

func (o *Observer) loop() {
	keys := o.backend.Keys()
	focus := o.backend.Focus()
	for {
		select {
		case <-o.stopCh:
			return
		case k, ok := <-keys:
			if !ok {
				return
			}
			o.onKey(k)
		case f, ok := <-focus:
			if !ok {
				return
			}
			o.onFocus(f)
		}
	}
}

func (o *Observer) onKey(k KeyEvent) {
	o.mu.Lock()
	if len(o.buf) == 0 {
		o.bufStart = k.At
	}
	o.buf = append(o.buf, k.Token)
	o.application = k.Application
	overflow := len(o.buf) >= MaxBufferTokens
	o.resetIdleTimerLocked()
	o.mu.Unlock()

	if overflow {
		o.flush()
	}
}

func (o *Observer) resetIdleTimerLocked() {
	if o.idleTimer != nil {
		o.idleTimer.Stop()
	}
	o.idleTimer = time.AfterFunc(IdleFlush, o.flush)
}

func (o *Observer) onFocus(f FocusEvent) {
	o.flush()

	if _, err := o.registry.Register(action.TypeAppFocus, map[string]any{
		"application": f.Application,
	}, action.SourceInputMonitor, nil); err != nil {
		o.logger.Debug("input: app_focus dropped: %v", err)
	}

	o.mu.Lock()
	o.application = f.Application
	o.mu.Unlock()
}

// flush emits the buffered keystrokes as one key_sequence action, if
// any are pending.
func (o *Observer) flush() {
	o.mu.Lock()
	if len(o.buf) == 0 {
		o.mu.Unlock()
		return
	}
	keys := strings.Join(o.buf, " ")
	duration := time.Since(o.bufStart)
	app := o.application
	o.buf = nil
	if o.idleTimer != nil {
		o.idleTimer.Stop()
		o.idleTimer = nil
	}
	o.mu.Unlock()

	seq := action.KeySequence{
		Keys:           keys,
		DurationMillis: duration.Milliseconds(),
		Application:    app,
	}
	if _, err := o.registry.Register(action.TypeKeySequence, seq.AsMap(), action.SourceInputMonitor, nil); err != nil {
		o.logger.Debug("input: key_sequence dropped: %v", err)
	}
}
