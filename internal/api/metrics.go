package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus counters/gauges over the daemon's runtime
// state (SPEC_FULL.md §11, §12.5 "/metrics"). The teacher's actual
// metrics source was not present in the retrieved pack — only its test
// (internal/observability/context_metrics_test.go) — so the
// NewXWithRegisterer(reg)/*GaugeVec/*CounterVec shape and
// WithLabelValues usage it exercises is reproduced here against this
// daemon's own metric names.
type Metrics struct {
	registry           *prometheus.Registry
	RegistrySize       prometheus.Gauge
	RegistryDropped    prometheus.Counter
	SuggestionsByState *prometheus.GaugeVec
	ExecutorAttempts   prometheus.Counter
	ExecutorOutcomes   *prometheus.CounterVec
}

// NewMetrics constructs a Metrics bound to a fresh registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.NewRegistry())
}

// NewMetricsWithRegisterer constructs a Metrics registered against reg,
// so tests can pass a throwaway registry the way
// context_metrics_test.go does.
func NewMetricsWithRegisterer(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		RegistrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deskloop_action_registry_size",
			Help: "Current number of actions retained in the Action Registry.",
		}),
		RegistryDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskloop_action_registry_dropped_total",
			Help: "Actions silently dropped while an automation run was in progress (spec §7 RegistryDropped).",
		}),
		SuggestionsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "deskloop_suggestions_by_state",
			Help: "Current number of suggestions in each lifecycle state.",
		}, []string{"state"}),
		ExecutorAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskloop_executor_attempts_total",
			Help: "Sandbox Executor script-execution attempts.",
		}),
		ExecutorOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskloop_executor_outcomes_total",
			Help: "Sandbox Executor terminal outcomes by result (success|failed).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.RegistrySize, m.RegistryDropped, m.SuggestionsByState, m.ExecutorAttempts, m.ExecutorOutcomes)
	return m
}

// RecordRegistryDropped increments the dropped-action counter (spec §7
// "counted in an internal metric").
func (m *Metrics) RecordRegistryDropped() {
	if m == nil {
		return
	}
	m.RegistryDropped.Inc()
}

// RecordExecution increments the attempts counter and the outcome
// counter for the given result.
func (m *Metrics) RecordExecution(success bool) {
	if m == nil {
		return
	}
	m.ExecutorAttempts.Inc()
	outcome := "failed"
	if success {
		outcome = "success"
	}
	m.ExecutorOutcomes.WithLabelValues(outcome).Inc()
}

// Refresh recomputes the point-in-time gauges (registry size,
// suggestions-by-state) from live component snapshots, just before
// they're scraped.
func (m *Metrics) Refresh(registrySize int, byState map[string]int) {
	if m == nil {
		return
	}
	m.RegistrySize.Set(float64(registrySize))
	for _, state := range []string{"pending", "accepted", "explained", "executing", "completed", "failed", "rejected"} {
		m.SuggestionsByState.WithLabelValues(state).Set(float64(byState[state]))
	}
}

// Handler returns the /metrics HTTP handler serving this Metrics'
// registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
