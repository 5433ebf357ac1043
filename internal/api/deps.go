// Package api implements the Control-Plane API (spec §4.8): the HTTP
// server binding every operation the other components expose, built on
// Go 1.22's method-pattern ServeMux and the teacher's functional
// middleware chain (internal/delivery/server/http/router.go).
package api

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"deskloop/internal/action"
	"deskloop/internal/config"
	"deskloop/internal/detector"
	"deskloop/internal/lifecycle"
	"deskloop/internal/logging"
	"deskloop/internal/observer/appusage"
	"deskloop/internal/summarizer"
)

// Registry is the subset of *action.Registry the API reads.
type Registry interface {
	Recent(window time.Duration) []action.Action
	All(limit int) []action.Action
	Stats() action.Stats
}

// Summaries is the subset of *summarizer.Summarizer the API reads.
type Summaries interface {
	MinuteSummaries() []summarizer.MinuteSummary
	TenMinuteSummaries() []summarizer.TenMinuteSummary
	DeleteMinuteSummary(id string) bool
	DeleteTenMinuteSummary(id string) bool
}

// Interactions is the subset of *summarizer.InteractionLog the API reads.
type Interactions interface {
	All() []summarizer.AIInteraction
}

// AppUsage is the subset of *appusage.Ledger the API reads.
type AppUsage interface {
	Today() appusage.Usage
	Week() map[string]appusage.Usage
	Hourly(date string) map[string]appusage.Usage
	Stats() appusage.Stats
}

// Muter mutes the pattern detector (spec §4.4).
type Muter interface {
	Mute(deadline time.Time)
}

// FsObserver rebuilds the filesystem watch set on a config change
// (spec §4.2 "on configuration change, tears down existing watches and
// rebuilds atomically").
type FsObserver interface {
	Watch(ctx context.Context, dirs []string) error
}

// CurrentActivity is a live snapshot of what the observers last saw
// (spec §6 "/automation/current-activity").
type CurrentActivity struct {
	CurrentApp    string    `json:"current_app"`
	RecentActions int       `json:"recent_actions"`
	LastActionAt  time.Time `json:"last_action_at,omitempty"`
}

// ConfigStore is the API's view of live config: the last-loaded Config,
// its source Metadata, and a hook to rebuild dependent components
// (notably the filesystem observer) after a write.
type ConfigStore struct {
	Get func() (config.Config, config.Metadata)
	Set func(config.Config) error
	// OnApply runs after a successful Set, with the fresh Config, so the
	// caller can rebuild anything that depends on it (the filesystem
	// observer's watch set in particular).
	OnApply func(config.Config)
}

// Deps bundles every component the router wires into handlers.
type Deps struct {
	Registry     Registry
	Lifecycle    *lifecycle.Manager
	Detector     *detector.Detector
	FsObserver   FsObserver
	Summaries    Summaries
	Interactions Interactions
	AppUsage     AppUsage
	Activity     func() CurrentActivity
	Config       *ConfigStore
	Metrics      *Metrics
	Fs           afero.Fs
	Shutdown     func()
	Logger       logging.Logger
}
