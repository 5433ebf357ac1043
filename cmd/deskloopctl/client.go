package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// client is a thin HTTP client against the Control-Plane API (spec
// §6, §9 "arbitrary frontend"). Every method mirrors one endpoint and
// decodes straight into the wire shapes the daemon's internal/api
// handlers already emit.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deskloopd unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Suggestion mirrors internal/lifecycle.Suggestion's JSON shape without
// importing the daemon's internal package (deskloopctl only talks over
// the wire, per spec §9's "arbitrary frontend" framing).
type Suggestion struct {
	SuggestionID       string          `json:"suggestion_id"`
	CreatedTS          time.Time       `json:"created_ts"`
	PatternDescription string          `json:"pattern_description"`
	PatternHash        string          `json:"pattern_hash"`
	Status             string          `json:"status"`
	UserExplanation    string          `json:"user_explanation,omitempty"`
	GeneratedScript    string          `json:"generated_script,omitempty"`
	ScriptSummary      string          `json:"script_summary,omitempty"`
	ExecutionResult    json.RawMessage `json:"execution_result,omitempty"`
	ErrorDetails       string          `json:"error_details,omitempty"`
	TimeSavedSeconds   int             `json:"time_saved_seconds,omitempty"`
}

// Action mirrors internal/action.Action's JSON shape.
type Action struct {
	ID        uint64         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"action_type"`
	Source    string         `json:"source"`
	Details   map[string]any `json:"details,omitempty"`
}

// Usage mirrors internal/observer/appusage.Usage.
type Usage struct {
	Usage       map[string]int64 `json:"usage"`
	TotalSecond int64            `json:"total_seconds"`
}

// AppUsageStats mirrors internal/observer/appusage.Stats.
type AppUsageStats struct {
	TotalToday    int64  `json:"total_today"`
	MostUsedToday string `json:"most_used_today"`
	AppsTracked   int    `json:"apps_tracked"`
	CurrentApp    string `json:"current_app"`
}

// CurrentActivity mirrors internal/api.CurrentActivity.
type CurrentActivity struct {
	CurrentApp    string    `json:"current_app"`
	RecentActions int       `json:"recent_actions"`
	LastActionAt  time.Time `json:"last_action_at,omitempty"`
}

// TimeSaved mirrors the /automation/time-saved response body.
type TimeSaved struct {
	TotalSeconds int    `json:"total_seconds"`
	Display      string `json:"display"`
}

// StatusResponse mirrors /automation/suggestion/{id}/status.
type StatusResponse struct {
	Status           string          `json:"status"`
	ExecutionResult  json.RawMessage `json:"execution_result"`
	ErrorDetails     string          `json:"error_details"`
	TimeSavedSeconds int             `json:"time_saved_seconds"`
}

func (c *client) PendingSuggestions(ctx context.Context) ([]Suggestion, error) {
	var out []Suggestion
	err := c.do(ctx, http.MethodGet, "/automation/pending-suggestions", nil, &out)
	return out, err
}

func (c *client) AllSuggestions(ctx context.Context) ([]Suggestion, error) {
	var out []Suggestion
	err := c.do(ctx, http.MethodGet, "/automation/suggestions/all", nil, &out)
	return out, err
}

func (c *client) SuggestionStatus(ctx context.Context, id string) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/automation/suggestion/"+id+"/status", nil, &out)
	return out, err
}

func (c *client) Accept(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/automation/suggestion/"+id+"/accept", nil, nil)
}

func (c *client) Reject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/automation/suggestion/"+id+"/reject", nil, nil)
}

type scriptResponse struct {
	Script  string `json:"script"`
	Summary string `json:"summary"`
}

func (c *client) Explain(ctx context.Context, id, explanation string) (scriptResponse, error) {
	var out scriptResponse
	err := c.do(ctx, http.MethodPost, "/automation/suggestion/"+id+"/explain", map[string]string{
		"explanation": explanation,
	}, &out)
	return out, err
}

func (c *client) Refine(ctx context.Context, id, refinement string) (scriptResponse, error) {
	var out scriptResponse
	err := c.do(ctx, http.MethodPost, "/automation/suggestion/"+id+"/refine", map[string]string{
		"refinement": refinement,
	}, &out)
	return out, err
}

func (c *client) ConfirmAndExecute(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/automation/suggestion/"+id+"/confirm-and-execute", nil, nil)
}

func (c *client) Mute(ctx context.Context, minutes int) error {
	return c.do(ctx, http.MethodPost, "/automation/mute", map[string]int{"minutes": minutes}, nil)
}

func (c *client) TimeSaved(ctx context.Context) (TimeSaved, error) {
	var out TimeSaved
	err := c.do(ctx, http.MethodGet, "/automation/time-saved", nil, &out)
	return out, err
}

func (c *client) CurrentActivity(ctx context.Context) (CurrentActivity, error) {
	var out CurrentActivity
	err := c.do(ctx, http.MethodGet, "/automation/current-activity", nil, &out)
	return out, err
}

func (c *client) RecentActions(ctx context.Context, seconds int) ([]Action, error) {
	var out []Action
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/automation/action-registry/recent?seconds=%d", seconds), nil, &out)
	return out, err
}

func (c *client) AppUsageToday(ctx context.Context) (Usage, error) {
	var out Usage
	err := c.do(ctx, http.MethodGet, "/app-usage/today", nil, &out)
	return out, err
}

func (c *client) AppUsageStats(ctx context.Context) (AppUsageStats, error) {
	var out AppUsageStats
	err := c.do(ctx, http.MethodGet, "/app-usage/stats", nil, &out)
	return out, err
}
