package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"log/slog"

	"github.com/nexus-development01/metabolical-backend/internal/api"
	"github.com/nexus-development01/metabolical-backend/internal/auth"
	"github.com/nexus-development01/metabolical-backend/internal/classify"
	"github.com/nexus-development01/metabolical-backend/internal/config"
	"github.com/nexus-development01/metabolical-backend/internal/database"
	"github.com/nexus-development01/metabolical-backend/internal/dedup"
	"github.com/nexus-development01/metabolical-backend/internal/enrichment"
	"github.com/nexus-development01/metabolical-backend/internal/ingestion"
	"github.com/nexus-development01/metabolical-backend/internal/logging"
	"github.com/nexus-development01/metabolical-backend/internal/metrics"
	"github.com/nexus-development01/metabolical-backend/internal/relevance"
	"github.com/nexus-development01/metabolical-backend/internal/scheduler"
	"github.com/nexus-development01/metabolical-backend/internal/server"
)

func main() {
	// .env is a development convenience; deployments set the environment
	// directly, so a missing file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting metabolical backend")

	// Connect to database (supports both local DATABASE_URL and Cloud SQL)
	dbURL, err := database.BuildURL()
	if err != nil {
		logger.Error("failed to build database URL", "error", err)
		os.Exit(1)
	}
	logger.Info("database configuration", "config", database.ConnectionInfo())

	dbCfg := database.DefaultConfig()
	dbCfg.URL = dbURL
	db, err := database.Connect(context.Background(), dbCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// Run pending migrations (non-fatal to allow app to start even if migrations fail)
	if err := database.RunMigrations(db, logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	articleRepo := database.NewPostgresArticleRepository(db)
	blacklistRepo := database.NewPostgresBlacklistRepository(db)

	// Load the scrape source list and the classification taxonomy; both fall
	// back to their embedded defaults when no override file is configured.
	sources, err := config.LoadSources(cfg.Scrape.SourcesFile, cfg.Scrape.FetchTimeout)
	if err != nil {
		logger.Error("failed to load sources", "error", err)
		os.Exit(1)
	}
	logger.Info("sources loaded", "feeds", len(sources.Feeds), "search_keywords", len(sources.SearchKeywords))

	taxonomy, err := classify.LoadTaxonomy(cfg.Scrape.TaxonomyFile)
	if err != nil {
		logger.Error("failed to load taxonomy", "error", err)
		os.Exit(1)
	}
	classifier := classify.NewClassifier(taxonomy)

	// Feed health registry backed by the blacklist table.
	health := ingestion.NewHealthRegistry(blacklistRepo, logger)
	if err := health.Load(context.Background()); err != nil {
		logger.Warn("failed to load feed blacklist, starting with empty registry", "error", err)
	}
	logger.Info("feed blacklist loaded", "active_entries", health.Size())

	limiter := ingestion.NewRateLimiter(cfg.Scrape.RequestsPerMinute)
	fetcher := ingestion.NewFetcher(ingestion.FetchConfig{
		MaxRetries:        cfg.Scrape.MaxRetries,
		RequestsPerMinute: cfg.Scrape.RequestsPerMinute,
		Timeout:           cfg.Scrape.FetchTimeout,
	}, limiter, health, logger)

	var filter relevance.Filter = relevance.PassThrough{}
	if cfg.Relevance.Enabled {
		filter = relevance.NewKeywordFilter(relevance.Config{
			MinScore:    cfg.Relevance.MinScore,
			MinRawScore: cfg.Relevance.MinRawScore,
		})
		logger.Info("relevance filter enabled",
			"min_score", cfg.Relevance.MinScore, "min_raw_score", cfg.Relevance.MinRawScore)
	}

	// Summaries come from OpenAI when a key is configured, with the template
	// writer behind it; otherwise the template writer alone.
	var writer enrichment.Writer = enrichment.NewTemplateWriter()
	if cfg.OpenAI.APIKey != "" {
		aiWriter := enrichment.NewOpenAIWriter(enrichment.OpenAIConfig{
			APIKey: cfg.OpenAI.APIKey,
			Model:  cfg.OpenAI.Model,
		}, logger)
		writer = enrichment.WithFallback(aiWriter, enrichment.NewTemplateWriter())
		logger.Info("AI summary writer enabled")
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	orchestrator := ingestion.NewOrchestrator(ingestion.OrchestratorConfig{
		Sources: ingestion.SourceSet{
			Feeds:            sources.Feeds,
			SearchKeywords:   sources.SearchKeywords,
			FallbackKeywords: sources.FallbackKeywords,
		},
		Fetcher:    fetcher,
		Health:     health,
		Store:      articleRepo,
		Classifier: classifier,
		Tagger:     classify.NewTagger(),
		Filter:     filter,
		Writer:     writer,
		Metrics:    collector,
		Logger:     logger,
		Dedup: dedup.Config{
			TitleThreshold:   cfg.Dedup.TitleThreshold,
			SummaryThreshold: cfg.Dedup.SummaryThreshold,
		},
		DedupOff:          !cfg.Dedup.Enabled,
		SeedWindow:        cfg.Scrape.SeedWindow,
		MaxConcurrency:    cfg.Scrape.MaxConcurrency,
		SearchConcurrency: cfg.Scrape.SearchConcurrency,
		SearchRPS:         cfg.Scrape.SearchRPS,
		RunTimeout:        cfg.Scrape.RunTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(scheduler.Config{
		ScrapeInterval: cfg.Jobs.ScrapeInterval,
		QuickInterval:  cfg.Jobs.QuickInterval,
		StartupDelay:   cfg.Jobs.StartupDelay,
		CleanupHourUTC: cfg.Jobs.CleanupHourUTC,
		RetentionDays:  cfg.Jobs.RetentionDays,
		KeepaliveURL:   cfg.Jobs.KeepaliveURL,
	}, orchestrator, articleRepo, health, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()

	// Liveness endpoint; /health does the deeper database check.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Service info endpoint
	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"metabolical-backend","status":"ready","version":"1.0.0"}`))
	})

	mux.Handle("/metrics", collector.Handler())

	// Load auth configuration
	authConfig, err := auth.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load auth config", "error", err)
		os.Exit(1)
	}
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != "change-this-secret")

	// Add REST API routes
	api.SetupRoutes(mux, articleRepo, db, taxonomy, sched, authConfig, logger)

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("metabolical backend started", "port", cfg.Server.Port)

	waitForSignal(logger)

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	sched.Stop()
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
