// Package config loads, hot-reloads, and persists config.yaml: the
// watched directories, registry capacity, detector cadence, logging
// toggle, control-plane port, LLM credentials, and the time-saved
// heuristic. It follows the teacher's functional-options loader shape
// (Load(opts ...Option)) so tests can inject an in-memory file reader
// and environment instead of touching the real filesystem.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultRecentOpsCapacity is the Action Registry's default soft cap.
	DefaultRecentOpsCapacity = 1000
	// DefaultPatternIntervalSeconds is the detector's default tick period.
	DefaultPatternIntervalSeconds = 10
	// DefaultBackendPort is the control-plane API's default port.
	DefaultBackendPort = 8002
	// DefaultFileOpSecondsSaved is the heuristic seconds saved per automated file operation.
	DefaultFileOpSecondsSaved = 20
	// DefaultRenameSecondsSaved is the heuristic seconds saved per automated rename.
	DefaultRenameSecondsSaved = 25
)

// Config mirrors config.yaml's recognised options (spec §6).
type Config struct {
	Watch struct {
		Dirs                   []string `yaml:"dirs"`
		RecentOpsCapacity      int      `yaml:"recent_ops_capacity"`
		PatternIntervalSeconds int      `yaml:"pattern_interval_seconds"`
	} `yaml:"watch"`

	Logging struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"logging"`

	Backend struct {
		Port int `yaml:"port"`
	} `yaml:"backend"`

	LLM struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
		Model    string `yaml:"model"`
	} `yaml:"llm"`

	TimeSaved struct {
		FileOpSeconds int `yaml:"file_op_seconds"`
		RenameSeconds int `yaml:"rename_seconds"`
	} `yaml:"time_saved"`
}

// EnvLookup mirrors os.LookupEnv so tests can inject a fake environment.
type EnvLookup func(key string) (string, bool)

// FileReader mirrors os.ReadFile so tests can inject in-memory content.
type FileReader func(path string) ([]byte, error)

// Option customizes Load.
type Option func(*loadState)

type loadState struct {
	path       string
	env        EnvLookup
	readFile   FileReader
	viperSetup func(*viper.Viper)
}

// WithPath overrides the config file path (default "config.yaml" in the
// current working directory).
func WithPath(path string) Option {
	return func(s *loadState) { s.path = path }
}

// WithEnv overrides the environment lookup used for LLM credential
// fallback and overrides.
func WithEnv(lookup EnvLookup) Option {
	return func(s *loadState) { s.env = lookup }
}

// WithFileReader overrides how the config file's bytes are obtained.
func WithFileReader(r FileReader) Option {
	return func(s *loadState) { s.readFile = r }
}

// Source identifies where a resolved field's value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// Metadata records, per dotted field path, which Source won.
type Metadata struct {
	sources map[string]Source
}

// Source returns the origin of a resolved field, or SourceDefault if
// the field was never explicitly recorded.
func (m Metadata) Source(key string) Source {
	if m.sources == nil {
		return SourceDefault
	}
	if s, ok := m.sources[key]; ok {
		return s
	}
	return SourceDefault
}

func newMetadata() *Metadata {
	return &Metadata{sources: make(map[string]Source)}
}

func (m *Metadata) set(key string, s Source) {
	m.sources[key] = s
}

// Load resolves Config from config.yaml overlaid with environment
// variables. Missing or corrupt files are not fatal: Load falls back to
// defaults, matching the rest of the system's "never crash on a
// configuration read" posture for everything except truly required
// startup values (an LLM-dependent feature invoked without credentials
// is a ConfigurationError, raised by the caller, not by Load).
func Load(opts ...Option) (Config, Metadata, error) {
	state := &loadState{
		path:     "config.yaml",
		env:      func(k string) (string, bool) { return os.LookupEnv(k) },
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(state)
	}

	meta := newMetadata()
	cfg := defaultConfig()

	if raw, err := state.readFile(state.path); err == nil {
		var fileCfg fileConfig
		if yerr := yaml.Unmarshal(raw, &fileCfg); yerr == nil {
			applyFileOverrides(&cfg, fileCfg, meta)
		}
	}

	applyEnvOverrides(&cfg, newViperEnv(state.env), meta)

	return cfg, *meta, nil
}

// newViperEnv wires the supplied lookup (real os.LookupEnv in
// production, a fake map in tests) through viper's env-key binding so
// DESKLOOP_LLM_API_KEY etc. resolve the same way whether they come from
// the real process environment or an injected one.
func newViperEnv(lookup EnvLookup) EnvLookup {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if val, ok := lookup(key); ok {
			v.Set(key, val)
		}
	}
	return func(key string) (string, bool) {
		val := v.GetString(key)
		return val, val != ""
	}
}

var envKeys = []string{
	"DESKLOOP_LLM_API_KEY",
	"DESKLOOP_LLM_PROVIDER",
	"DESKLOOP_LLM_BASE_URL",
	"DESKLOOP_LLM_MODEL",
	"DESKLOOP_BACKEND_PORT",
}

func defaultConfig() Config {
	var cfg Config
	cfg.Watch.RecentOpsCapacity = DefaultRecentOpsCapacity
	cfg.Watch.PatternIntervalSeconds = DefaultPatternIntervalSeconds
	cfg.Logging.Enabled = true
	cfg.Backend.Port = DefaultBackendPort
	cfg.LLM.Provider = "mock"
	cfg.TimeSaved.FileOpSeconds = DefaultFileOpSecondsSaved
	cfg.TimeSaved.RenameSeconds = DefaultRenameSecondsSaved
	return cfg
}

// fileConfig mirrors Config but uses pointers where "was this key
// present" must be distinguished from "present with the zero value" —
// logging.enabled: false is a meaningful file override, unlike an
// absent logging section.
type fileConfig struct {
	Watch struct {
		Dirs                   []string `yaml:"dirs"`
		RecentOpsCapacity      int      `yaml:"recent_ops_capacity"`
		PatternIntervalSeconds int      `yaml:"pattern_interval_seconds"`
	} `yaml:"watch"`
	Logging struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"logging"`
	Backend struct {
		Port int `yaml:"port"`
	} `yaml:"backend"`
	LLM struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
		Model    string `yaml:"model"`
	} `yaml:"llm"`
	TimeSaved struct {
		FileOpSeconds int `yaml:"file_op_seconds"`
		RenameSeconds int `yaml:"rename_seconds"`
	} `yaml:"time_saved"`
}

func applyFileOverrides(cfg *Config, file fileConfig, meta *Metadata) {
	if len(file.Watch.Dirs) > 0 {
		cfg.Watch.Dirs = expandHome(file.Watch.Dirs)
		meta.set("watch.dirs", SourceFile)
	}
	if file.Watch.RecentOpsCapacity > 0 {
		cfg.Watch.RecentOpsCapacity = file.Watch.RecentOpsCapacity
		meta.set("watch.recent_ops_capacity", SourceFile)
	}
	if file.Watch.PatternIntervalSeconds > 0 {
		cfg.Watch.PatternIntervalSeconds = file.Watch.PatternIntervalSeconds
		meta.set("watch.pattern_interval_seconds", SourceFile)
	}
	if file.Logging.Enabled != nil {
		cfg.Logging.Enabled = *file.Logging.Enabled
		meta.set("logging.enabled", SourceFile)
	}
	if file.Backend.Port > 0 {
		cfg.Backend.Port = file.Backend.Port
		meta.set("backend.port", SourceFile)
	}
	if file.LLM.Provider != "" {
		cfg.LLM.Provider = file.LLM.Provider
		meta.set("llm.provider", SourceFile)
	}
	if file.LLM.APIKey != "" {
		cfg.LLM.APIKey = file.LLM.APIKey
		meta.set("llm.api_key", SourceFile)
	}
	if file.LLM.BaseURL != "" {
		cfg.LLM.BaseURL = file.LLM.BaseURL
		meta.set("llm.base_url", SourceFile)
	}
	if file.LLM.Model != "" {
		cfg.LLM.Model = file.LLM.Model
		meta.set("llm.model", SourceFile)
	}
	if file.TimeSaved.FileOpSeconds > 0 {
		cfg.TimeSaved.FileOpSeconds = file.TimeSaved.FileOpSeconds
		meta.set("time_saved.file_op_seconds", SourceFile)
	}
	if file.TimeSaved.RenameSeconds > 0 {
		cfg.TimeSaved.RenameSeconds = file.TimeSaved.RenameSeconds
		meta.set("time_saved.rename_seconds", SourceFile)
	}
}

func applyEnvOverrides(cfg *Config, env EnvLookup, meta *Metadata) {
	if v, ok := env("DESKLOOP_LLM_API_KEY"); ok && v != "" {
		cfg.LLM.APIKey = v
		meta.set("llm.api_key", SourceEnv)
	}
	if v, ok := env("DESKLOOP_LLM_PROVIDER"); ok && v != "" {
		cfg.LLM.Provider = v
		meta.set("llm.provider", SourceEnv)
	}
	if v, ok := env("DESKLOOP_LLM_BASE_URL"); ok && v != "" {
		cfg.LLM.BaseURL = v
		meta.set("llm.base_url", SourceEnv)
	}
	if v, ok := env("DESKLOOP_LLM_MODEL"); ok && v != "" {
		cfg.LLM.Model = v
		meta.set("llm.model", SourceEnv)
	}
	if v, ok := env("DESKLOOP_BACKEND_PORT"); ok && v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Backend.Port = port
			meta.set("backend.port", SourceEnv)
		}
	}
}

func expandHome(dirs []string) []string {
	home, err := os.UserHomeDir()
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if err == nil && (d == "~" || strings.HasPrefix(d, "~/")) {
			d = filepath.Join(home, strings.TrimPrefix(d, "~"))
		}
		out = append(out, filepath.Clean(d))
	}
	return out
}
