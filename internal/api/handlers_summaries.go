package api

import "net/http"

// handleMinuteSummaries serves GET/DELETE /summaries/minute.
func (h *handler) handleMinuteSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		for _, s := range h.deps.Summaries.MinuteSummaries() {
			h.deps.Summaries.DeleteMinuteSummary(s.ID)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Summaries.MinuteSummaries())
}

// handleTenMinuteSummaries serves GET/DELETE /summaries/ten-minute.
func (h *handler) handleTenMinuteSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		for _, s := range h.deps.Summaries.TenMinuteSummaries() {
			h.deps.Summaries.DeleteTenMinuteSummary(s.ID)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Summaries.TenMinuteSummaries())
}

// handleGetSummary serves GET /summaries/{kind}/{id}: a single summary
// looked up by id out of its kind's store.
func (h *handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id := r.PathValue("id")

	switch kind {
	case "minute":
		for _, s := range h.deps.Summaries.MinuteSummaries() {
			if s.ID == id {
				writeJSON(w, http.StatusOK, s)
				return
			}
		}
	case "ten-minute":
		for _, s := range h.deps.Summaries.TenMinuteSummaries() {
			if s.ID == id {
				writeJSON(w, http.StatusOK, s)
				return
			}
		}
	default:
		writeError(w, http.StatusNotFound, "unknown summary kind: "+kind)
		return
	}
	writeError(w, http.StatusNotFound, "summary not found: "+id)
}

// handleDeleteSummary serves DELETE /summaries/{kind}/{id}, independently
// deleting one summary by id (spec §4.6).
func (h *handler) handleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id := r.PathValue("id")

	var ok bool
	switch kind {
	case "minute":
		ok = h.deps.Summaries.DeleteMinuteSummary(id)
	case "ten-minute":
		ok = h.deps.Summaries.DeleteTenMinuteSummary(id)
	default:
		writeError(w, http.StatusNotFound, "unknown summary kind: "+kind)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "summary not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleAIInteractions serves GET /ai-interactions.
func (h *handler) handleAIInteractions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Interactions.All())
}
