package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/codefionn/concierge/internal/artifacts"
	"github.com/codefionn/concierge/internal/config"
	"github.com/codefionn/concierge/internal/knowledge"
	"github.com/codefionn/concierge/internal/llm"
	"github.com/codefionn/concierge/internal/logger"
	"github.com/codefionn/concierge/internal/mcp"
	"github.com/codefionn/concierge/internal/orchestrator"
	"github.com/codefionn/concierge/internal/provider"
	"github.com/codefionn/concierge/internal/tools"
)

// app holds everything a command needs. close releases it in reverse
// order of construction.
type app struct {
	cfg      *config.Config
	registry *tools.Registry
	metrics  *prometheus.Registry
	servers  *mcp.Manager
	router   *llm.Router
	orch     *orchestrator.Orchestrator
	closers  []func() error
}

type appOptions struct {
	// connectServers starts the configured tool servers.
	connectServers bool
	// override adjusts the loaded configuration before anything is built.
	override func(*config.Config)
}

func loadConfig() (*config.Config, error) {
	// A .env file next to the working directory may carry provider API keys.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read .env: %v\n", err)
	}

	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl := strings.TrimSpace(logLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.override != nil {
		opts.override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if err := logger.Init(logger.ParseLevel(cfg.Log.Level), cfg.Log.Path); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &app{cfg: cfg, registry: tools.NewRegistry()}
	rt.closers = append(rt.closers, logger.Global().Close)

	rt.metrics = prometheus.NewRegistry()
	rt.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.Web.Enabled {
		rt.registry.RegisterSpec(&tools.WebLookupToolSpec{}, tools.NewWebLookupToolFactory(tools.WebLookupOptions{
			Client:    &http.Client{Timeout: time.Duration(cfg.Web.TimeoutSeconds) * time.Second},
			MaxBytes:  cfg.Web.MaxBytes,
			UserAgent: cfg.Web.UserAgent,
		}))
	}

	if opts.connectServers {
		rt.servers = mcp.NewManager(rt.registry, cfg.ToolServers)
		for _, err := range rt.servers.Start(ctx) {
			logger.Warn("tool server unavailable: %v", err)
		}
		rt.closers = append(rt.closers, rt.servers.Stop)
	}

	deps := orchestrator.Dependencies{
		Registry: rt.registry,
		Resolver: provider.NewResolver(cfg.Providers, cfg.ModelProviderMap()),
		Metrics:  orchestrator.NewMetrics(rt.metrics),
	}

	rt.router = llm.NewRouter()
	rt.closers = append(rt.closers, rt.router.Close)
	deps.Generator = rt.router

	if cfg.Knowledge.IndexFile != "" {
		deps.Knowledge = knowledge.NewFileLoader(cfg.Knowledge.IndexFile)
	}

	if cfg.Artifacts.SignatureDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Artifacts.SignatureDB), 0o755); err != nil {
			rt.close()
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		store, err := artifacts.OpenSQLiteStore(cfg.Artifacts.SignatureDB)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("failed to open artifact signatures: %w", err)
		}
		rt.closers = append(rt.closers, store.Close)
		deps.Signatures = store
	}

	orch, err := orchestrator.New(deps, orchestratorConfig(cfg))
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.orch = orch
	return rt, nil
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		MaxSteps:        cfg.Orchestrator.MaxSteps,
		MaxToolCalls:    cfg.Orchestrator.MaxToolCalls,
		MaxBatchSize:    cfg.Orchestrator.MaxBatchSize,
		DevelopmentMode: cfg.Orchestrator.DevelopmentMode,
		ValidateAnswers: cfg.Orchestrator.ValidateAnswers,
		Models: orchestrator.ModelConfig{
			Default:    cfg.Models.Default,
			Planning:   cfg.Models.Planning,
			Evaluation: cfg.Models.Evaluation,
			Synthesis:  cfg.Models.Synthesis,
			Validation: cfg.Models.Validation,
		},
		ContextTokenBudget: cfg.Context.TokenBudget,
		Tokenizer:          cfg.Context.Tokenizer,
	}
}

func (rt *app) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: shutdown: %v\n", err)
		}
	}
	rt.closers = nil
}
