package api

import "net/http"

// handleGetConfig serves GET /config: a flattened view of the live
// config plus the source ("default"|"file"|"env") of each field (spec
// §6 "Read/write flattened config").
func (h *handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, meta := h.deps.Config.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"watch.dirs":                        cfg.Watch.Dirs,
		"watch.recent_ops_capacity":         cfg.Watch.RecentOpsCapacity,
		"watch.pattern_interval_seconds":    cfg.Watch.PatternIntervalSeconds,
		"logging.enabled":                   cfg.Logging.Enabled,
		"backend.port":                      cfg.Backend.Port,
		"llm.provider":                      cfg.LLM.Provider,
		"llm.model":                         cfg.LLM.Model,
		"time_saved.file_op_seconds":        cfg.TimeSaved.FileOpSeconds,
		"time_saved.rename_seconds":         cfg.TimeSaved.RenameSeconds,
		"_source": map[string]string{
			"watch.dirs":                     string(meta.Source("watch.dirs")),
			"watch.recent_ops_capacity":      string(meta.Source("watch.recent_ops_capacity")),
			"watch.pattern_interval_seconds": string(meta.Source("watch.pattern_interval_seconds")),
			"logging.enabled":                string(meta.Source("logging.enabled")),
			"backend.port":                   string(meta.Source("backend.port")),
			"llm.provider":                   string(meta.Source("llm.provider")),
			"llm.model":                      string(meta.Source("llm.model")),
			"time_saved.file_op_seconds":     string(meta.Source("time_saved.file_op_seconds")),
			"time_saved.rename_seconds":      string(meta.Source("time_saved.rename_seconds")),
		},
	})
}

// handlePutConfig serves PUT /config: replaces recognised fields and
// persists config.yaml. Writing watch.dirs rebuilds the filesystem
// observer's watch set (spec §6, §4.2).
func (h *handler) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	cfg, _ := h.deps.Config.Get()

	var patch struct {
		WatchDirs              *[]string `json:"watch.dirs"`
		RecentOpsCapacity      *int      `json:"watch.recent_ops_capacity"`
		PatternIntervalSeconds *int      `json:"watch.pattern_interval_seconds"`
		LoggingEnabled         *bool     `json:"logging.enabled"`
		BackendPort            *int      `json:"backend.port"`
		LLMProvider            *string   `json:"llm.provider"`
		LLMAPIKey              *string   `json:"llm.api_key"`
		LLMBaseURL             *string   `json:"llm.base_url"`
		LLMModel               *string   `json:"llm.model"`
		FileOpSeconds          *int      `json:"time_saved.file_op_seconds"`
		RenameSeconds          *int      `json:"time_saved.rename_seconds"`
	}
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dirsChanged := false
	if patch.WatchDirs != nil {
		cfg.Watch.Dirs = *patch.WatchDirs
		dirsChanged = true
	}
	if patch.RecentOpsCapacity != nil {
		cfg.Watch.RecentOpsCapacity = *patch.RecentOpsCapacity
	}
	if patch.PatternIntervalSeconds != nil {
		cfg.Watch.PatternIntervalSeconds = *patch.PatternIntervalSeconds
	}
	if patch.LoggingEnabled != nil {
		cfg.Logging.Enabled = *patch.LoggingEnabled
	}
	if patch.BackendPort != nil {
		cfg.Backend.Port = *patch.BackendPort
	}
	if patch.LLMProvider != nil {
		cfg.LLM.Provider = *patch.LLMProvider
	}
	if patch.LLMAPIKey != nil {
		cfg.LLM.APIKey = *patch.LLMAPIKey
	}
	if patch.LLMBaseURL != nil {
		cfg.LLM.BaseURL = *patch.LLMBaseURL
	}
	if patch.LLMModel != nil {
		cfg.LLM.Model = *patch.LLMModel
	}
	if patch.FileOpSeconds != nil {
		cfg.TimeSaved.FileOpSeconds = *patch.FileOpSeconds
	}
	if patch.RenameSeconds != nil {
		cfg.TimeSaved.RenameSeconds = *patch.RenameSeconds
	}

	if err := h.deps.Config.Set(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist config: "+err.Error())
		return
	}
	if dirsChanged && h.deps.FsObserver != nil {
		if err := h.deps.FsObserver.Watch(r.Context(), cfg.Watch.Dirs); err != nil {
			h.logger.Warn("config: failed to rebuild filesystem watches: %v", err)
		}
	}
	if h.deps.Config.OnApply != nil {
		h.deps.Config.OnApply(cfg)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
