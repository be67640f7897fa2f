package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/civitas-labs/legisync/internal/config"
	"github.com/civitas-labs/legisync/internal/document/sqlite"
	"github.com/civitas-labs/legisync/internal/enrich"
	"github.com/civitas-labs/legisync/internal/extract"
	"github.com/civitas-labs/legisync/internal/llm"
	"github.com/civitas-labs/legisync/internal/llm/anthropic"
	"github.com/civitas-labs/legisync/internal/llm/openai"
	"github.com/civitas-labs/legisync/internal/registry"
	temporalmod "github.com/civitas-labs/legisync/internal/temporal"
	"github.com/civitas-labs/legisync/internal/vector"
)

func main() {
	_ = godotenv.Load()

	configPath := "configs/legisync.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.Default()

	repo, err := sqlite.NewStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("document store: %v", err)
	}
	defer repo.Close()

	regClient := registry.NewClient(registry.ClientConfig{
		BaseURL:      cfg.Registry.BaseURL,
		APIKey:       cfg.Registry.APIKey,
		DocumentType: cfg.Registry.DocumentType,
		Body:         cfg.Registry.Body,
	})
	syncEngine := registry.NewEngine(regClient, repo, logger)

	// Build LLM provider via factory (supports sync-only operation).
	factory := llm.NewFactory()
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL), nil
	})
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})

	pc := llm.DefaultProviderConfig()
	pc.Provider = cfg.LLM.Provider
	pc.APIKey = cfg.LLM.APIKey
	pc.Model = cfg.LLM.Model
	pc.BaseURL = cfg.LLM.BaseURL
	pc.EmbedModel = cfg.LLM.EmbedModel

	provider, err := factory.Create(pc)
	if err != nil {
		log.Fatalf("creating LLM provider: %v", err)
	}

	deps := &temporalmod.Dependencies{Sync: syncEngine}

	if provider != nil {
		// Wire rate limiter before SetDependencies
		provider = llm.WithRateLimit(provider, llm.DefaultRateLimitConfig())

		vectors, err := vector.NewQdrant(cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.Dimension)
		if err != nil {
			log.Fatalf("vector store: %v", err)
		}
		defer vectors.Close()

		if err := vectors.EnsureCollection(context.Background()); err != nil {
			log.Fatalf("vector collection: %v", err)
		}

		deps.Enricher = enrich.NewOrchestrator(repo, enrich.NewAnalyzer(provider), extract.NewExtractor(), vectors, logger, enrich.Options{
			BatchSize: cfg.Enrich.BatchSize,
			Pacing:    cfg.Enrich.Pacing,
		})
	}

	temporalmod.SetDependencies(deps)

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	if err := temporalmod.ScheduleWorkflows(context.Background(), c, cfg.Temporal.TaskQueue,
		cfg.Registry.SyncSchedule, cfg.Enrich.Schedule); err != nil {
		log.Fatalf("scheduling workflows: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	fmt.Println("Worker stopped")
}
