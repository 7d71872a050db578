package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/cache"
	"github.com/cloneforge/cloneforge-engine/pkg/config"
	"github.com/cloneforge/cloneforge-engine/pkg/database"
	"github.com/cloneforge/cloneforge-engine/pkg/handlers"
	"github.com/cloneforge/cloneforge-engine/pkg/llm"
	"github.com/cloneforge/cloneforge-engine/pkg/middleware"
	"github.com/cloneforge/cloneforge-engine/pkg/repositories"
	"github.com/cloneforge/cloneforge-engine/pkg/retry"
	"github.com/cloneforge/cloneforge-engine/pkg/scraper"
	"github.com/cloneforge/cloneforge-engine/pkg/services"
	"github.com/cloneforge/cloneforge-engine/pkg/techdetect"
	"github.com/cloneforge/cloneforge-engine/pkg/validation"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("primary_provider", cfg.AI.Primary.Kind),
		zap.Bool("fallback_configured", cfg.AI.Fallback.IsConfigured()),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("tech_detection", cfg.TechDetection.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	repo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer cleanup()

	// Insights cache: Redis when configured, in-process otherwise.
	insights, err := buildInsightsCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize insights cache", zap.Error(err))
	}

	// AI provider chain
	chain, err := buildProviderChain(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AI providers", zap.Error(err))
	}

	// Technology detection
	detector, err := buildDetector(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize technology detection", zap.Error(err))
	}

	retryCfg := &retry.Config{
		MaxAttempts:  cfg.Analysis.RetryMaxAttempts,
		InitialDelay: time.Duration(cfg.Analysis.RetryInitialDelayMs) * time.Millisecond,
		Multiplier:   cfg.Analysis.RetryMultiplier,
		MaxDelay:     time.Duration(cfg.Analysis.RetryMaxDelayMs) * time.Millisecond,
	}
	checkpoints := retry.NewCheckpointStore()
	orchestrator := services.NewOrchestrator(cfg.Analysis.MaxConcurrent, logger)
	pageScraper := scraper.NewHTTPScraper(time.Duration(cfg.Analysis.ScrapeTimeoutSecs)*time.Second, logger)

	analysisService := services.NewAnalysisService(
		repo, chain, pageScraper, detector, insights, orchestrator,
		services.AnalysisServiceConfig{
			AITimeout:            time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			TechDetectTimeout:    time.Duration(cfg.TechDetection.TimeoutSeconds) * time.Second,
			TechDetectionEnabled: cfg.TechDetection.Enabled,
			MaxTokens:            cfg.AI.MaxTokens,
			Temperature:          cfg.AI.Temperature,
			Retry:                retryCfg,
		}, logger)

	stageService := services.NewStageService(
		repo, chain, validation.NewValidator(validation.DefaultConfig()), checkpoints,
		services.StageServiceConfig{
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
			Retry:       retryCfg,
		}, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	router := handlers.NewRouter(handlers.RouterDeps{
		Health:    handlers.NewHealthHandler(cfg, logger),
		Analyses:  handlers.NewAnalysisHandler(analysisService, cfg.IsDevelopment(), logger),
		Stages:    handlers.NewStageHandler(stageService, cfg.IsDevelopment(), logger),
		Cache:     handlers.NewCacheHandler(insights, logger),
		RateLimit: rateLimiter,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting cloneforge-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildRepository selects the analysis store per the configured driver and
// runs migrations when PostgreSQL is used.
func buildRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.AnalysisRepository, func(), error) {
	if cfg.Storage.Driver != "postgres" {
		return repositories.NewMemoryAnalysisRepository(), func() {}, nil
	}

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	stdDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.Migrate(stdDB, cfg.Database.MigrationsPath, logger); err != nil {
		db.Close()
		return nil, nil, err
	}

	return repositories.NewAnalysisRepository(db), db.Close, nil
}

func buildInsightsCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.InsightsCache, error) {
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		logger.Info("Using Redis insights cache",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port))
		return cache.NewRedisCache(redisClient, cfg.Cache.TTL(), logger), nil
	}

	memory := cache.NewMemoryCache(cfg.Cache.TTL())
	memory.StartSweep(ctx, cfg.Cache.SweepInterval())
	return memory, nil
}

// buildProviderChain assembles primary plus optional fallback into one
// content client. Without a fallback the primary client serves alone.
func buildProviderChain(cfg *config.Config, logger *zap.Logger) (llm.ContentClient, error) {
	primary, err := buildProvider(&cfg.AI.Primary, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.AI.Fallback.IsConfigured() {
		return primary, nil
	}
	fallback, err := buildProvider(&cfg.AI.Fallback, logger)
	if err != nil {
		return nil, err
	}
	return llm.NewChain(primary, fallback, logger), nil
}

func buildProvider(p *config.ProviderConfig, logger *zap.Logger) (llm.ContentClient, error) {
	switch p.Kind {
	case "anthropic":
		return llm.NewAnthropicClient(&llm.AnthropicConfig{
			Model:  p.Model,
			APIKey: p.APIKey,
		}, logger)
	default:
		return llm.NewOpenAIClient(&llm.OpenAIConfig{
			Endpoint: p.Endpoint,
			Model:    p.Model,
			APIKey:   p.APIKey,
		}, logger)
	}
}

func buildDetector(cfg *config.Config, logger *zap.Logger) (techdetect.Detector, error) {
	if !cfg.TechDetection.Enabled {
		return nil, nil
	}

	rules, err := loadFingerprints(cfg.TechDetection.FingerprintsPath)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.TechDetection.TimeoutSeconds) * time.Second
	return techdetect.NewFingerprintDetector(rules, timeout, logger), nil
}

func loadFingerprints(path string) ([]techdetect.Fingerprint, error) {
	if path == "" {
		return techdetect.DefaultFingerprints()
	}
	return techdetect.LoadFingerprints(path)
}
