package api

import (
	"net/http"
)

// handleHealth serves GET /health and GET / (spec §6 "Liveness").
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics serves GET /metrics, refreshing the point-in-time
// gauges from live component snapshots before handing off to the
// Prometheus handler (SPEC_FULL.md §12.5).
func (h *handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.deps.Metrics == nil {
		writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	stats := h.deps.Registry.Stats()
	byState := make(map[string]int)
	for _, s := range h.deps.Lifecycle.All() {
		byState[string(s.Status)]++
	}
	h.deps.Metrics.Refresh(stats.Total, byState)
	h.deps.Metrics.Handler().ServeHTTP(w, r)
}

// handleShutdown serves POST /shutdown: triggers the same graceful stop
// path as SIGTERM (spec §6 "Graceful stop").
func (h *handler) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "shutting_down"})
	if h.deps.Shutdown != nil {
		h.shutdownOnce.Do(h.deps.Shutdown)
	}
}
