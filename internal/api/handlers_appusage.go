package api

import "net/http"

// handleAppUsageToday serves GET /app-usage/today.
func (h *handler) handleAppUsageToday(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.AppUsage.Today())
}

// handleAppUsageWeek serves GET /app-usage/week.
func (h *handler) handleAppUsageWeek(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.AppUsage.Week())
}

// handleAppUsageHourly serves GET /app-usage/hourly?date=YYYY-MM-DD.
func (h *handler) handleAppUsageHourly(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter required (YYYY-MM-DD)")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AppUsage.Hourly(date))
}

// handleAppUsageStats serves GET /app-usage/stats.
func (h *handler) handleAppUsageStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.AppUsage.Stats())
}
