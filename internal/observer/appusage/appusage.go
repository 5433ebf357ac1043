// Package appusage implements the App-Usage Tracker (spec §4.2): a 1s
// foreground-application poller that accumulates per-day, per-app,
// per-hour usage seconds into an AppUsageLedger, persisted every minute
// and on shutdown.
package appusage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"deskloop/internal/async"
	"deskloop/internal/logging"
)

// PollInterval is the foreground-application polling cadence (spec §4.2).
const PollInterval = time.Second

// PersistInterval is the ledger flush cadence (spec §4.2).
const PersistInterval = time.Minute

// FocusSource abstracts obtaining the current foreground application;
// the real implementation is OS-specific (out of scope for this module,
// same reasoning as internal/observer/input's Backend).
type FocusSource func() (app string, windowTitle string, err error)

// Usage maps app name to accumulated seconds for one scope (a day or an
// hour within a day) — the "today-shape" named throughout spec §4.2.
type Usage struct {
	Usage       map[string]int64 `json:"usage"`
	TotalSecond int64            `json:"total_seconds"`
}

func newUsage() Usage {
	return Usage{Usage: make(map[string]int64)}
}

func (u *Usage) add(app string, seconds int64) {
	if u.Usage == nil {
		u.Usage = make(map[string]int64)
	}
	u.Usage[app] += seconds
	u.TotalSecond += seconds
}

// dayLedger is one day's accumulation: a day total plus 24 hour buckets,
// both keyed by app. The invariant sum_over_hours(hourly) == today is
// maintained by always updating both in tick().
type dayLedger struct {
	Day   Usage            `json:"day"`
	Hours map[string]Usage `json:"hours"` // key: "00".."23"
}

func newDayLedger() *dayLedger {
	return &dayLedger{Day: newUsage(), Hours: make(map[string]Usage)}
}

// Ledger is the AppUsageLedger: per-day, per-app, per-hour accumulation.
type Ledger struct {
	mu          sync.RWMutex
	days        map[string]*dayLedger // key: "2006-01-02"
	currentApp  string
	logger      logging.Logger
	focus       FocusSource
	now         func() time.Time
}

// New constructs an empty Ledger backed by the given focus source.
func New(focus FocusSource, logger logging.Logger) *Ledger {
	return &Ledger{
		days:   make(map[string]*dayLedger),
		focus:  focus,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Run polls the foreground application every PollInterval, accumulating
// one second of usage per tick, until ctx is cancelled.
func (l *Ledger) Run(ctx context.Context) {
	async.Every(ctx, l.logger, "appusage.poll", PollInterval, func(context.Context) {
		l.tick()
	})
}

func (l *Ledger) tick() {
	app, _, err := l.focus()
	if err != nil {
		l.logger.Debug("appusage: focus read failed: %v", err)
		return
	}
	if app == "" {
		return
	}

	now := l.now()
	date := now.Format("2006-01-02")
	hour := now.Format("15")

	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentApp = app
	d, ok := l.days[date]
	if !ok {
		d = newDayLedger()
		l.days[date] = d
	}
	d.Day.add(app, 1)
	h := d.Hours[hour]
	h.add(app, 1)
	d.Hours[hour] = h
}

// Today returns the current day's usage shape.
func (l *Ledger) Today() Usage {
	return l.dayUsage(l.now().Format("2006-01-02"))
}

func (l *Ledger) dayUsage(date string) Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.days[date]
	if !ok {
		return newUsage()
	}
	return cloneUsage(d.Day)
}

// Week returns each of the last 7 days (including today), keyed by
// date, in today-shape.
func (l *Ledger) Week() map[string]Usage {
	out := make(map[string]Usage)
	for i := 0; i < 7; i++ {
		date := l.now().AddDate(0, 0, -i).Format("2006-01-02")
		out[date] = l.dayUsage(date)
	}
	return out
}

// Hourly returns the given date's usage broken down by hour bucket,
// each in today-shape scoped to that hour.
func (l *Ledger) Hourly(date string) map[string]Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]Usage)
	d, ok := l.days[date]
	if !ok {
		return out
	}
	for hour, u := range d.Hours {
		out[hour] = cloneUsage(u)
	}
	return out
}

// Stats summarises today's usage (spec §4.2 stats()).
type Stats struct {
	TotalToday    int64  `json:"total_today"`
	MostUsedToday string `json:"most_used_today"`
	AppsTracked   int    `json:"apps_tracked"`
	CurrentApp    string `json:"current_app"`
}

func (l *Ledger) Stats() Stats {
	today := l.Today()

	l.mu.RLock()
	current := l.currentApp
	l.mu.RUnlock()

	var most string
	var max int64
	for app, secs := range today.Usage {
		if secs > max {
			max = secs
			most = app
		}
	}

	return Stats{
		TotalToday:    today.TotalSecond,
		MostUsedToday: most,
		AppsTracked:   len(today.Usage),
		CurrentApp:    current,
	}
}

func cloneUsage(u Usage) Usage {
	out := newUsage()
	out.TotalSecond = u.TotalSecond
	for app, secs := range u.Usage {
		out.Usage[app] = secs
	}
	return out
}

// persistedUsage mirrors one scope's accumulation using app_usage.json's
// documented field names ("apps"/"total", spec §6) rather than the HTTP
// API's "usage"/"total_seconds" names (spec §4.2 today()/week()/hourly()).
type persistedUsage struct {
	Apps  map[string]int64 `json:"apps"`
	Total int64            `json:"total"`
}

// persistedDay is one date's entry under the top-level "days" map (spec
// §6: "{ apps: {name: seconds}, hours: { "HH": {apps, total} }, total }").
type persistedDay struct {
	Apps  map[string]int64          `json:"apps"`
	Hours map[string]persistedUsage `json:"hours"`
	Total int64                     `json:"total"`
}

// persistedLedger is app_usage.json's documented top-level shape (spec
// §6: "{ days: { YYYY-MM-DD: {...} } }").
type persistedLedger struct {
	Days map[string]persistedDay `json:"days"`
}

func toPersistedUsage(u Usage) persistedUsage {
	return persistedUsage{Apps: u.Usage, Total: u.TotalSecond}
}

func fromPersistedUsage(p persistedUsage) Usage {
	u := newUsage()
	for app, secs := range p.Apps {
		u.Usage[app] = secs
	}
	u.TotalSecond = p.Total
	return u
}

// Persist serialises the ledger to path atomically, matching
// app_usage.json's documented shape (spec §6).
func (l *Ledger) Persist(fs afero.Fs, path string) error {
	l.mu.RLock()
	days := make(map[string]persistedDay, len(l.days))
	for date, day := range l.days {
		hours := make(map[string]persistedUsage, len(day.Hours))
		for hour, u := range day.Hours {
			hours[hour] = toPersistedUsage(u)
		}
		days[date] = persistedDay{
			Apps:  cloneUsage(day.Day).Usage,
			Hours: hours,
			Total: day.Day.TotalSecond,
		}
	}
	l.mu.RUnlock()

	raw, err := json.Marshal(persistedLedger{Days: days})
	if err != nil {
		return fmt.Errorf("marshal app usage ledger: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure app usage dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp app usage ledger: %w", err)
	}
	return fs.Rename(tmp, path)
}

// Load resumes ledger state from path. A missing or corrupt file
// yields an empty ledger, never an error.
func (l *Ledger) Load(fs afero.Fs, path string) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return
	}
	var loaded persistedLedger
	if err := json.Unmarshal(raw, &loaded); err != nil {
		l.logger.Warn("app usage ledger corrupt, starting empty: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for date, p := range loaded.Days {
		d := newDayLedger()
		d.Day = fromPersistedUsage(persistedUsage{Apps: p.Apps, Total: p.Total})
		for hour, u := range p.Hours {
			d.Hours[hour] = fromPersistedUsage(u)
		}
		l.days[date] = d
	}
}

// RunPersistLoop flushes the ledger to path on PersistInterval until ctx
// is cancelled.
func (l *Ledger) RunPersistLoop(ctx context.Context, fs afero.Fs, path string) {
	async.Every(ctx, l.logger, "appusage.persist", PersistInterval, func(context.Context) {
		if err := l.Persist(fs, path); err != nil {
			l.logger.Warn("app usage persist failed: %v", err)
		}
	})
}
