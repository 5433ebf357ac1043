package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spf13/afero"

	"deskloop/internal/action"
	"deskloop/internal/api"
	"deskloop/internal/config"
	"deskloop/internal/detector"
	deskerrors "deskloop/internal/errors"
	"deskloop/internal/lifecycle"
	"deskloop/internal/llm"
	"deskloop/internal/logging"
	"deskloop/internal/observer/appusage"
	"deskloop/internal/observer/fswatch"
	"deskloop/internal/observer/input"
	"deskloop/internal/platform"
	"deskloop/internal/sandbox"
	"deskloop/internal/summarizer"
)

// stateDir is where every persisted JSON file and materialised script
// lives, matching spec §6's flat persisted-files layout.
const stateDir = ".deskloop"

// daemon bundles every long-lived component so shutdown can reach each
// one's Persist/Stop method without the call sites scattered across
// runDaemon.
type daemon struct {
	logger    logging.Logger
	fs        afero.Fs
	registry  *action.Registry
	lifecycle *lifecycle.Manager
	detector  *detector.Detector
	summary   *summarizer.Summarizer
	aiLog     *summarizer.InteractionLog
	appUsage  *appusage.Ledger
	fswatcher *fswatch.Observer
	inputObs  *input.Observer
	cfgWatch  *config.Watcher
	server    *http.Server
	watchDirs []string
}

func runDaemon(configPath string) error {
	logger := logging.NewComponentLogger("deskloopd")

	cfg, _, err := config.Load(config.WithPath(configPath))
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	d, err := build(configPath, cfg, logger)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("control-plane API listening on %s", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return d.server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	d.stop()
	return err
}

// build wires every component per SPEC_FULL.md §10.4: afero filesystem,
// Action Registry, LLM Client, Sandbox Executor, Suggestion Lifecycle
// Manager, Detector, Summariser, Observers, Control-Plane API.
func build(configPath string, cfg config.Config, logger logging.Logger) (*daemon, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	registry := action.New(cfg.Watch.RecentOpsCapacity, logging.NewComponentLogger("ActionRegistry"))
	registry.Load(fs, statePath("action_registry.json"))

	aiLog := summarizer.NewInteractionLog()
	client := buildLLMClient(cfg, aiLog, logging.NewComponentLogger("LLMClient"))

	executor := sandbox.New(
		registry,
		client,
		&sandbox.PipInstaller{},
		&sandbox.ProcessRunner{},
		fs,
		filepath.Join(stateDir, "scripts"),
		logging.NewComponentLogger("SandboxExecutor"),
	)

	heuristic := lifecycle.TimeSavedSeconds{
		FileOp: cfg.TimeSaved.FileOpSeconds,
		Rename: cfg.TimeSaved.RenameSeconds,
	}
	manager := lifecycle.New(executor, heuristic, logging.NewComponentLogger("Lifecycle"))

	det := detector.New(registry, manager, manager, client, logging.NewComponentLogger("Detector"))

	summary := summarizer.New(registry, client, logging.NewComponentLogger("Summariser"))
	summary.Load(fs, statePath("summaries_minute.json"), statePath("summaries_ten_minute.json"))
	aiLog.Load(fs, statePath("ai_interactions.json"))

	appUsage := appusage.New(platform.NoopFocusSource, logging.NewComponentLogger("AppUsage"))
	appUsage.Load(fs, statePath("app_usage.json"))

	fsObserver := fswatch.New(registry, logging.NewComponentLogger("FsWatch"))
	inputObs := input.New(platform.NewNoopBackend(), registry, logging.NewComponentLogger("InputObserver"))

	configStore := &api.ConfigStore{
		Get: func() (config.Config, config.Metadata) {
			c, meta, _ := config.Load(config.WithPath(configPath))
			return c, meta
		},
		Set: func(c config.Config) error {
			return config.Save(fs, configPath, c)
		},
	}

	var daemonRef *daemon
	cfgWatch, err := config.NewWatcher(configPath, func(newCfg config.Config, _ config.Metadata) {
		if daemonRef == nil || daemonRef.fswatcher == nil {
			return
		}
		if err := daemonRef.fswatcher.Watch(context.Background(), newCfg.Watch.Dirs); err != nil {
			logger.Warn("failed to rebuild filesystem watches after config reload: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	metrics := api.NewMetrics()

	deps := api.Deps{
		Registry:     registry,
		Lifecycle:    manager,
		Detector:     det,
		FsObserver:   fsObserver,
		Summaries:    summary,
		Interactions: aiLog,
		AppUsage:     appUsage,
		Activity: func() api.CurrentActivity {
			return api.CurrentActivity{
				CurrentApp:    appUsage.Stats().CurrentApp,
				RecentActions: len(registry.Recent(detector.Window)),
			}
		},
		Config:  configStore,
		Metrics: metrics,
		Fs:      fs,
		Logger:  logging.NewComponentLogger("API"),
	}

	d := &daemon{
		logger:    logger,
		fs:        fs,
		registry:  registry,
		lifecycle: manager,
		detector:  det,
		summary:   summary,
		aiLog:     aiLog,
		appUsage:  appUsage,
		fswatcher: fsObserver,
		inputObs:  inputObs,
		cfgWatch:  cfgWatch,
		watchDirs: cfg.Watch.Dirs,
	}
	daemonRef = d
	deps.Shutdown = func() { go d.triggerShutdown() }

	d.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Backend.Port),
		Handler: api.NewRouter(deps, api.RouterConfig{Environment: os.Getenv("DESKLOOP_ENV")}),
	}
	return d, nil
}

var shutdownSignalOnce sync.Once

// triggerShutdown lets the /shutdown endpoint request the same graceful
// stop a SIGTERM would (spec §6 POST /shutdown).
func (d *daemon) triggerShutdown() {
	shutdownSignalOnce.Do(func() {
		proc, err := os.FindProcess(os.Getpid())
		if err != nil {
			return
		}
		_ = proc.Signal(syscall.SIGTERM)
	})
}

func (d *daemon) start(ctx context.Context) {
	d.detector.Run(ctx)
	d.summary.Run(ctx)
	d.appUsage.Run(ctx)
	d.registry.RunPersistLoop(ctx, d.fs, statePath("action_registry.json"))
	d.summary.RunPersistLoop(ctx, d.fs, statePath("summaries_minute.json"), statePath("summaries_ten_minute.json"))
	d.aiLog.RunPersistLoop(ctx, d.logger, d.fs, statePath("ai_interactions.json"))
	d.appUsage.RunPersistLoop(ctx, d.fs, statePath("app_usage.json"))

	if err := d.fswatcher.Watch(ctx, d.watchDirs); err != nil {
		d.logger.Warn("filesystem observer failed to start: %v", err)
	}
	if err := d.inputObs.Start(); err != nil {
		d.logger.Warn("input observer failed to start: %v", err)
	}
	if err := d.cfgWatch.Start(ctx); err != nil {
		d.logger.Warn("config watcher failed to start: %v", err)
	}
}

// stop persists final state and tears down every background component,
// matching spec §5 "Cancellation: ... The Registry is persisted on
// shutdown."
func (d *daemon) stop() {
	d.inputObs.Stop()
	d.fswatcher.Stop()
	d.cfgWatch.Stop()

	if err := d.registry.Persist(d.fs, statePath("action_registry.json")); err != nil {
		d.logger.Warn("final action registry persist failed: %v", err)
	}
	if err := d.appUsage.Persist(d.fs, statePath("app_usage.json")); err != nil {
		d.logger.Warn("final app usage persist failed: %v", err)
	}
	if err := d.summary.Persist(d.fs, statePath("summaries_minute.json"), statePath("summaries_ten_minute.json")); err != nil {
		d.logger.Warn("final summaries persist failed: %v", err)
	}
	if err := d.aiLog.Persist(d.fs, statePath("ai_interactions.json")); err != nil {
		d.logger.Warn("final AI interaction log persist failed: %v", err)
	}
}

func statePath(name string) string {
	return filepath.Join(stateDir, name)
}

// buildLLMClient constructs the LLM Client (spec §4.7): a mock
// transport by default, or an OpenAI-compatible transport when
// credentials are configured, wrapped in retry-with-backoff, a circuit
// breaker, and AIInteraction recording shared by every caller
// (detector, summariser, sandbox executor all tag their own calls via
// Ask's agentTag parameter).
func buildLLMClient(cfg config.Config, recorder llm.Recorder, logger logging.Logger) llm.Client {
	var transport llm.Transport
	switch cfg.LLM.Provider {
	case "openai", "openrouter":
		transport = llm.NewOpenAITransport(llm.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
	default:
		transport = &llm.MockTransport{}
	}

	breaker := deskerrors.NewCircuitBreaker("llm", deskerrors.CircuitBreakerConfig{})
	return llm.NewRetryingClient(transport, deskerrors.DefaultRetryConfig(), breaker, recorder, logger)
}
