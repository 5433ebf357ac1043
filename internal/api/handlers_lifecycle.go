package api

import (
	"net/http"
	"strconv"
	"time"
)

// handlePendingSuggestions serves GET /automation/pending-suggestions.
func (h *handler) handlePendingSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Lifecycle.Pending())
}

// handleAllSuggestions serves GET /automation/suggestions/all.
func (h *handler) handleAllSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Lifecycle.All())
}

// handleSuggestionStatus serves GET /automation/suggestion/{id}/status.
func (h *handler) handleSuggestionStatus(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Lifecycle.Get(r.PathValue("id"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             s.Status,
		"execution_result":   s.ExecutionResult,
		"error_details":      s.ErrorDetails,
		"time_saved_seconds": s.TimeSavedSeconds,
	})
}

// handleAccept serves POST /automation/suggestion/{id}/accept.
func (h *handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Lifecycle.Accept(r.PathValue("id")); err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// handleReject serves POST /automation/suggestion/{id}/reject.
func (h *handler) handleReject(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Lifecycle.Reject(r.PathValue("id")); err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type explainRequest struct {
	Explanation string `json:"explanation"`
}

// handleExplain serves POST /automation/suggestion/{id}/explain.
func (h *handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	script, summary, err := h.deps.Lifecycle.Explain(r.Context(), r.PathValue("id"), req.Explanation)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"script": script, "summary": summary})
}

type refineRequest struct {
	Refinement string `json:"refinement"`
}

// handleRefine serves POST /automation/suggestion/{id}/refine.
func (h *handler) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	script, summary, err := h.deps.Lifecycle.Refine(r.Context(), r.PathValue("id"), req.Refinement)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"script": script, "summary": summary})
}

// handleConfirmAndExecute serves
// POST /automation/suggestion/{id}/confirm-and-execute. Returns
// immediately; the run happens in a detached goroutine (spec §9).
func (h *handler) handleConfirmAndExecute(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Lifecycle.ConfirmAndExecute(r.Context(), r.PathValue("id")); err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "executing"})
}

type muteRequest struct {
	Minutes int `json:"minutes"`
}

// handleMute serves POST /automation/mute {minutes}.
func (h *handler) handleMute(w http.ResponseWriter, r *http.Request) {
	var req muteRequest
	if err := decodeJSON(r, &req); err != nil || req.Minutes <= 0 {
		writeError(w, http.StatusBadRequest, "minutes must be a positive integer")
		return
	}
	deadline := time.Now().Add(time.Duration(req.Minutes) * time.Minute)
	h.deps.Detector.Mute(deadline)
	writeJSON(w, http.StatusOK, map[string]string{"muted_until": deadline.Format(time.RFC3339)})
}

// handleTimeSaved serves GET /automation/time-saved.
func (h *handler) handleTimeSaved(w http.ResponseWriter, r *http.Request) {
	total := h.deps.Lifecycle.TimeSaved()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_seconds": total,
		"display":       formatDuration(total),
	})
}

func formatDuration(totalSeconds int) string {
	d := time.Duration(totalSeconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
	}
	if m > 0 {
		return strconv.Itoa(m) + "m " + strconv.Itoa(s) + "s"
	}
	return strconv.Itoa(s) + "s"
}

// handleCurrentActivity serves GET /automation/current-activity.
func (h *handler) handleCurrentActivity(w http.ResponseWriter, r *http.Request) {
	if h.deps.Activity == nil {
		writeJSON(w, http.StatusOK, CurrentActivity{})
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Activity())
}

// handleLongTermStatus serves GET /automation/long-term/status: a
// literal stub (spec §6, Non-goal — long-term pattern mining is out of
// scope for this module).
func (h *handler) handleLongTermStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "coming_soon"})
}
