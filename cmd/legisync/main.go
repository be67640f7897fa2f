package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/civitas-labs/legisync/internal/config"
	"github.com/civitas-labs/legisync/internal/document"
	"github.com/civitas-labs/legisync/internal/document/sqlite"
	"github.com/civitas-labs/legisync/internal/enrich"
	"github.com/civitas-labs/legisync/internal/extract"
	"github.com/civitas-labs/legisync/internal/llm"
	"github.com/civitas-labs/legisync/internal/llm/anthropic"
	"github.com/civitas-labs/legisync/internal/llm/openai"
	"github.com/civitas-labs/legisync/internal/metrics"
	"github.com/civitas-labs/legisync/internal/news"
	"github.com/civitas-labs/legisync/internal/observability"
	"github.com/civitas-labs/legisync/internal/registry"
	"github.com/civitas-labs/legisync/internal/scheduler"
	"github.com/civitas-labs/legisync/internal/server"
	"github.com/civitas-labs/legisync/internal/vector"
)

// version is stamped at build time via -ldflags.
var version = "0.1.0"

func main() {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	var (
		configPath string
		jsonReport bool
	)

	rootCmd := &cobra.Command{
		Use:   "legisync",
		Short: "Legislative document sync and AI enrichment pipeline",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/legisync.yaml", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server with the in-process scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one registry sync pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(configPath, jsonReport)
		},
	}
	syncCmd.Flags().BoolVar(&jsonReport, "json", false, "Output report as JSON")

	enrichCmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run one enrichment batch and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(configPath, jsonReport)
		},
	}
	enrichCmd.Flags().BoolVar(&jsonReport, "json", false, "Output report as JSON")

	var (
		searchCategory string
		searchRessort  string
		searchLimit    int
	)
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Similarity search over enriched documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(configPath, args[0], searchCategory, searchRessort, searchLimit)
		},
	}
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Filter by category")
	searchCmd.Flags().StringVar(&searchRessort, "ressort", "", "Filter by department")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum results")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-14s %s\n", name, url)
			}
			fmt.Println("  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println("  none           (run without LLM — sync only)")
			fmt.Println()
			fmt.Println("Configure in legisync.yaml or via environment:")
			fmt.Println("  LEGISYNC_LLM_PROVIDER=openai")
			fmt.Println("  LEGISYNC_LLM_API_KEY=sk-...")
			fmt.Println("  LEGISYNC_LLM_MODEL=gpt-4o-mini")
		},
	}

	rootCmd.AddCommand(serveCmd, syncCmd, enrichCmd, searchCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles everything the commands share.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	repo     document.Repository
	registry *registry.Client
	sync     *registry.Engine
	provider llm.Provider
	analyzer *enrich.LLMAnalyzer
	vectors  *vector.QdrantStore
	enricher *enrich.Orchestrator
	news     *news.Client
}

// buildApp loads config and wires the pipeline. Vector store and enricher
// are nil when no LLM provider is configured.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	repo, err := sqlite.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	regClient := registry.NewClient(registry.ClientConfig{
		BaseURL:      cfg.Registry.BaseURL,
		APIKey:       cfg.Registry.APIKey,
		DocumentType: cfg.Registry.DocumentType,
		Body:         cfg.Registry.Body,
	})

	a := &app{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		registry: regClient,
		sync:     registry.NewEngine(regClient, repo, logger),
		news:     news.NewClient(cfg.News.FeedURL),
	}

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if provider == nil {
		logger.Info("no LLM provider configured, enrichment disabled")
		return a, nil
	}

	vectors, err := vector.NewQdrant(cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.Dimension)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("connecting vector store: %w", err)
	}

	a.provider = provider
	a.analyzer = enrich.NewAnalyzer(provider)
	a.vectors = vectors
	a.enricher = enrich.NewOrchestrator(repo, a.analyzer, extract.NewExtractor(), vectors, logger, enrich.Options{
		BatchSize: cfg.Enrich.BatchSize,
		Pacing:    cfg.Enrich.Pacing,
	})
	return a, nil
}

func (a *app) close() {
	if a.vectors != nil {
		a.vectors.Close()
	}
	a.repo.Close()
}

// buildProvider creates the configured LLM provider, wrapped with retry and
// rate limiting. Returns nil when provider is "" or "none".
func buildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	factory := llm.NewFactory()
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL), nil
	})
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
	// All OpenAI-compatible providers
	for _, p := range []struct{ name, url string }{
		{"groq", llm.KnownProviders["groq"]},
		{"ollama", llm.KnownProviders["ollama"]},
		{"together", llm.KnownProviders["together"]},
		{"deepseek", llm.KnownProviders["deepseek"]},
		{"custom", ""},
	} {
		p := p
		factory.Register(p.name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = p.url
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}

	pc := llm.DefaultProviderConfig()
	pc.Provider = cfg.Provider
	pc.APIKey = cfg.APIKey
	pc.Model = cfg.Model
	pc.BaseURL = cfg.BaseURL
	pc.EmbedModel = cfg.EmbedModel
	if cfg.Timeout > 0 {
		pc.Timeout = cfg.Timeout
	}
	if cfg.MaxRetries > 0 {
		pc.MaxRetries = cfg.MaxRetries
	}

	provider, err := factory.Create(pc)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return llm.WithRateLimit(provider, llm.DefaultRateLimitConfig()), nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func runServe(configPath string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "legisync",
		ServiceVersion: version,
		Environment:    a.cfg.Telemetry.Environment,
		OTLPEndpoint:   a.cfg.Telemetry.OTLPEndpoint,
		SampleRate:     a.cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	if a.vectors != nil {
		if err := a.vectors.EnsureCollection(ctx); err != nil {
			a.logger.Warn("vector collection setup failed, search degraded", "error", err)
		}
	}

	// Scheduler
	sched := scheduler.New(a.logger)
	if err := sched.Add(scheduler.Job{
		Name:     "sync",
		Schedule: a.cfg.Registry.SyncSchedule,
		Run: func(ctx context.Context) {
			res := a.sync.Sync(ctx)
			a.logger.Info("scheduled sync finished", "synced", res.Synced, "errors", res.Errors)
		},
	}); err != nil {
		return err
	}
	if a.enricher != nil {
		if err := sched.Add(scheduler.Job{
			Name:     "enrich",
			Schedule: a.cfg.Enrich.Schedule,
			Run: func(ctx context.Context) {
				if _, err := a.enricher.Run(ctx); err != nil {
					a.logger.Error("scheduled enrichment failed", "error", err)
				}
			},
		}); err != nil {
			return err
		}
	}
	sched.Start()

	// HTTP surface
	health := server.NewHealthServer(version)
	health.RegisterCheck("database", server.DatabaseHealthChecker(func(ctx context.Context) error {
		_, err := a.repo.Departments(ctx)
		return err
	}))
	health.RegisterCheck("registry", server.RegistryHealthChecker(a.registry.Configured))
	if a.provider != nil {
		health.RegisterCheck("llm", server.LLMHealthChecker(a.provider.Name(), nil))
	}
	if a.vectors != nil {
		health.RegisterCheck("vector", server.VectorStoreHealthChecker(func(ctx context.Context) error {
			return a.vectors.EnsureCollection(ctx)
		}))
	}

	apiCfg := server.APIConfig{
		Repo:   a.repo,
		Sync:   a.sync,
		News:   a.news,
		Logger: a.logger,
	}
	if a.enricher != nil {
		apiCfg.Enricher = a.enricher
		apiCfg.Embedder = a.analyzer
		apiCfg.Vectors = a.vectors
	}

	mux := http.NewServeMux()
	health.Register(mux)
	server.NewAPI(apiCfg).Register(mux)

	httpServer := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{
		Timeout: 30 * time.Second,
		Logger:  a.logger,
	})
	shutdown.RegisterHook("http", server.PriorityHTTP, httpServer.Shutdown)
	shutdown.RegisterHook("scheduler", server.PriorityScheduler, func(ctx context.Context) error {
		sched.Stop()
		return nil
	})
	shutdown.RegisterHook("tracing", server.PriorityTracing, tracing.Shutdown)
	shutdown.RegisterHook("database", server.PriorityDatabase, func(ctx context.Context) error {
		a.close()
		return nil
	})
	shutdown.Start()

	go func() {
		<-shutdown.ShutdownCh()
		health.SetReady(false)
	}()

	health.SetReady(true)
	a.logger.Info("server started", "addr", a.cfg.Server.Addr)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server failed", "error", err)
			shutdown.Shutdown()
		}
	}()

	shutdown.Wait()
	a.logger.Info("server stopped")
	return nil
}

func runSync(configPath string, jsonReport bool) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	report := metrics.New()
	ctx, span := observability.StartSyncSpan(context.Background())
	start := time.Now()
	res := a.sync.Sync(ctx)
	observability.RecordSyncResult(span, res.Synced, res.Errors)
	span.End()

	report.AddStage("sync", time.Since(start), res.Synced, res.Errors)
	report.Finish(nil)
	printReport(report, jsonReport)

	if res.Errors > 0 {
		return fmt.Errorf("sync finished with %d errors", res.Errors)
	}
	return nil
}

func runEnrich(configPath string, jsonReport bool) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if a.enricher == nil {
		return fmt.Errorf("no LLM provider configured — set llm.provider in %s", configPath)
	}

	ctx := context.Background()
	if err := a.vectors.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("preparing vector collection: %w", err)
	}

	report := metrics.New()
	report.LLMMode = "llm:" + a.provider.Name()
	start := time.Now()
	res, err := a.enricher.Run(ctx)
	if err != nil {
		return err
	}

	report.AddStage("enrich", time.Since(start), res.Processed, res.Errors)
	report.Finish(nil)
	printReport(report, jsonReport)

	if res.Errors > 0 {
		return fmt.Errorf("enrichment finished with %d errors", res.Errors)
	}
	return nil
}

func runSearch(configPath, query, category, ressort string, limit int) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if a.analyzer == nil {
		return fmt.Errorf("no LLM provider configured — search needs an embedding provider")
	}

	ctx := context.Background()
	vec, err := a.analyzer.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	var filter *vector.Filter
	if category != "" || ressort != "" {
		filter = &vector.Filter{Category: category, Department: ressort}
	}

	hits, err := a.vectors.Search(ctx, vec, limit, filter)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, h := range hits {
		fmt.Printf("%.3f  %-10s %s\n", h.Score, h.DIPID, h.Title)
		if h.Payload.Category != "" {
			fmt.Printf("       [%s] %s\n", h.Payload.Category, h.Payload.Date)
		}
	}
	return nil
}

func printReport(report *metrics.RunReport, jsonReport bool) {
	if jsonReport {
		data, _ := report.JSON()
		fmt.Println(string(data))
		return
	}
	report.PrintSummary(os.Stdout)
}
