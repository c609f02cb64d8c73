package main

import (
	"context"
	"fmt"
	"os"

	"github.com/orienta-edu/orienta-backend/internal/catalog"
	"github.com/orienta-edu/orienta-backend/internal/clients/redis"
	"github.com/orienta-edu/orienta-backend/internal/data/repos"
	"github.com/orienta-edu/orienta-backend/internal/db"
	"github.com/orienta-edu/orienta-backend/internal/engine"
	httpx "github.com/orienta-edu/orienta-backend/internal/http"
	httpH "github.com/orienta-edu/orienta-backend/internal/http/handlers"
	httpMW "github.com/orienta-edu/orienta-backend/internal/http/middleware"
	"github.com/orienta-edu/orienta-backend/internal/observability"
	"github.com/orienta-edu/orienta-backend/internal/platform/envutil"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
	"github.com/orienta-edu/orienta-backend/internal/providers"
	"github.com/orienta-edu/orienta-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	if shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "orienta-backend",
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", ""),
	}); shutdown != nil {
		defer shutdown(context.Background())
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	piarRepo := repos.NewPiarRepo(thePG, log)
	commRepo := repos.NewCommunicationRepo(thePG, log)
	runRepo := repos.NewGenerationRunRepo(thePG, log)

	// Redis (optional; everything degrades to plain database reads)
	piarCache, err := redis.NewPiarCache(log)
	if err != nil {
		log.Warn("PIAR cache disabled", "error", err)
		piarCache = nil
	}

	// Capability catalog
	cat, err := catalog.Load(envutil.String("ORIENTA_CATALOG_CONFIG", ""))
	if err != nil {
		log.Error("Could not load capability catalog", "error", err)
		os.Exit(1)
	}

	// Provider adapters. A provider whose credentials are missing is
	// skipped with a warning; the dispatcher works with whatever is left
	// and the mock generator covers an empty registry.
	impls := map[string]providers.ContentProvider{}
	for _, cfg := range cat.EnabledProviders() {
		var (
			impl providers.ContentProvider
			perr error
		)
		switch cfg.ID {
		case "openai":
			impl, perr = providers.NewOpenAIProvider(log, cfg.Model)
		case "anthropic":
			impl, perr = providers.NewAnthropicProvider(log, cfg.Model)
		case "gemini":
			impl, perr = providers.NewGeminiProvider(ctx, log, cfg.Model)
		default:
			log.Warn("no adapter for configured provider", "provider", cfg.ID)
			continue
		}
		if perr != nil {
			log.Warn("provider adapter init failed, skipping", "provider", cfg.ID, "error", perr)
			continue
		}
		impls[cfg.ID] = impl
	}

	// Generation engine
	clock := engine.NewRealClock()
	prober := engine.NewProber(log, clock, engine.DefaultAvailabilityTTL)
	builder := engine.NewPromptBuilder(cat)
	norm := engine.NewNormalizer(cat)
	mock := providers.NewMockGenerator(log, envutil.Bool("MOCK_SIMULATE_LATENCY", false))
	dispatcher := engine.NewDispatcher(log, cat, prober, builder, norm, mock, impls, clock)

	// Services
	log.Info("Setting up services from main...")
	piarService := services.NewPiarService(thePG, log, piarRepo, piarCache)
	generationService := services.NewGenerationService(thePG, log, dispatcher, piarService, runRepo)
	communicationService := services.NewCommunicationService(thePG, log, commRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	generationHandler := httpH.NewGenerationHandler(generationService)
	communicationHandler := httpH.NewCommunicationHandler(communicationService)
	piarHandler := httpH.NewPiarHandler(piarService)
	healthHandler := httpH.NewHealthHandler()

	// Middleware
	authMiddleware, err := httpMW.NewAuthMiddleware(log)
	if err != nil {
		log.Error("Could not init auth middleware", "error", err)
		os.Exit(1)
	}

	// Router
	log.Info("Setting up router from main...")
	server := httpx.NewServer(httpx.RouterConfig{
		Log:                  log,
		AuthMiddleware:       authMiddleware,
		GenerationHandler:    generationHandler,
		CommunicationHandler: communicationHandler,
		PiarHandler:          piarHandler,
		HealthHandler:        healthHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := server.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
