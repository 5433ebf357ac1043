// Package platform supplies the inert default implementations of the
// OS-specific hooks internal/observer/input.Backend and
// internal/observer/appusage.FocusSource deliberately leave abstract
// (spec §4.2's observers are driven by platform hooks this module does
// not reimplement — see DESIGN.md). cmd/deskloopd wires these in by
// default so the daemon starts and serves its API on any platform;
// a real deployment replaces them with an OS-native capture backend.
package platform

import (
	"deskloop/internal/observer/input"
)

// NoopBackend satisfies input.Backend with channels that never fire.
// It lets the Input Observer start and shut down cleanly without a real
// global-hook implementation wired in.
type NoopBackend struct {
	keys  chan input.KeyEvent
	focus chan input.FocusEvent
}

// NewNoopBackend constructs a Backend that never emits events.
func NewNoopBackend() *NoopBackend {
	return &NoopBackend{
		keys:  make(chan input.KeyEvent),
		focus: make(chan input.FocusEvent),
	}
}

func (b *NoopBackend) Keys() <-chan input.KeyEvent   { return b.keys }
func (b *NoopBackend) Focus() <-chan input.FocusEvent { return b.focus }
func (b *NoopBackend) Start() error                   { return nil }
func (b *NoopBackend) Stop()                          {}

// NoopFocusSource satisfies appusage.FocusSource, reporting no
// foreground application. The App-Usage Tracker simply accumulates
// nothing until a real focus source is wired in.
func NoopFocusSource() (string, string, error) {
	return "", "", nil
}
