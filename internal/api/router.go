package api

import (
	"net/http"
	"sync"

	"deskloop/internal/logging"
)

// handler carries the Deps every endpoint closes over, mirroring the
// teacher's apiHandler (internal/delivery/server/http/router.go
// constructs one handler struct and attaches every route's method to
// it).
type handler struct {
	deps         Deps
	logger       logging.Logger
	shutdownOnce sync.Once
}

// RouterConfig configures cross-cutting router behavior not carried by
// Deps, mirroring the teacher's RouterConfig (environment/CORS knobs
// live outside the per-request dependency bundle).
type RouterConfig struct {
	Environment    string
	AllowedOrigins []string
}

// NewRouter builds the Control-Plane API's http.Handler: a Go 1.22+
// method-pattern ServeMux wrapped in the teacher's functional
// middleware chain (internal/delivery/server/http/router.go).
func NewRouter(deps Deps, cfg RouterConfig) http.Handler {
	logger := logging.NewComponentLogger("Router")
	latency := logging.NewLatencyLogger("HTTP")
	h := &handler{deps: deps, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /{$}", h.handleHealth)
	mux.HandleFunc("GET /metrics", h.handleMetrics)

	mux.HandleFunc("GET /config", h.handleGetConfig)
	mux.HandleFunc("PUT /config", h.handlePutConfig)

	mux.HandleFunc("GET /recent-actions", h.handleRecentActions)
	mux.HandleFunc("GET /recent-actions/detailed", h.handleRecentActionsDetailed)

	mux.HandleFunc("GET /automation/action-registry/stats", h.handleRegistryStats)
	mux.HandleFunc("GET /automation/action-registry/all", h.handleRegistryAll)
	mux.HandleFunc("GET /automation/action-registry/recent", h.handleRegistryRecent)

	mux.HandleFunc("GET /automation/pending-suggestions", h.handlePendingSuggestions)
	mux.HandleFunc("GET /automation/suggestions/all", h.handleAllSuggestions)
	mux.HandleFunc("POST /automation/suggestion/{id}/accept", h.handleAccept)
	mux.HandleFunc("POST /automation/suggestion/{id}/reject", h.handleReject)
	mux.HandleFunc("POST /automation/suggestion/{id}/explain", h.handleExplain)
	mux.HandleFunc("POST /automation/suggestion/{id}/refine", h.handleRefine)
	mux.HandleFunc("POST /automation/suggestion/{id}/confirm-and-execute", h.handleConfirmAndExecute)
	mux.HandleFunc("GET /automation/suggestion/{id}/status", h.handleSuggestionStatus)

	mux.HandleFunc("POST /automation/mute", h.handleMute)
	mux.HandleFunc("GET /automation/time-saved", h.handleTimeSaved)
	mux.HandleFunc("GET /automation/current-activity", h.handleCurrentActivity)
	mux.HandleFunc("GET /automation/long-term/status", h.handleLongTermStatus)

	mux.HandleFunc("GET /summaries/minute", h.handleMinuteSummaries)
	mux.HandleFunc("DELETE /summaries/minute", h.handleMinuteSummaries)
	mux.HandleFunc("GET /summaries/ten-minute", h.handleTenMinuteSummaries)
	mux.HandleFunc("DELETE /summaries/ten-minute", h.handleTenMinuteSummaries)
	mux.HandleFunc("GET /summaries/{kind}/{id}", h.handleGetSummary)
	mux.HandleFunc("DELETE /summaries/{kind}/{id}", h.handleDeleteSummary)

	mux.HandleFunc("GET /app-usage/today", h.handleAppUsageToday)
	mux.HandleFunc("GET /app-usage/week", h.handleAppUsageWeek)
	mux.HandleFunc("GET /app-usage/hourly", h.handleAppUsageHourly)
	mux.HandleFunc("GET /app-usage/stats", h.handleAppUsageStats)

	mux.HandleFunc("GET /ai-interactions", h.handleAIInteractions)
	mux.HandleFunc("POST /shutdown", h.handleShutdown)

	var chained http.Handler = mux
	chained = ObservabilityMiddleware(latency)(chained)
	chained = LoggingMiddleware(logger)(chained)
	chained = RequestIDMiddleware()(chained)
	chained = RecoverMiddleware(logger)(chained)
	chained = CORSMiddleware(cfg.Environment, cfg.AllowedOrigins)(chained)
	return chained
}
