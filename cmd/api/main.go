package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/adapters/cache"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/adapters/database"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/adapters/providers/vision"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/adapters/search"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/api/handlers"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/api/routes"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/application/services"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/providers"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/openai"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/postgres"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/redis"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/typesense"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/observability"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client; the application degrades without it
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client; searches fail without it, so this stays fatal
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Fatalf("Failed to initialize Typesense client: %v", err)
	}
	if err := typesenseClient.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize Typesense schema: %v", err)
	}
	log.Println("Typesense client initialized successfully")

	// Initialize vision provider; image search degrades to text without it
	var visionProvider providers.ImageAnalysisProvider
	if cfg.OpenAI.APIKey != "" {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Printf("Warning: Failed to initialize OpenAI client: %v", err)
		} else {
			visionProvider = vision.NewOpenAIImageProvider(openaiClient, cacheProvider)
			log.Println("OpenAI vision client initialized successfully")
		}
	} else if cfg.Server.Env == "development" {
		visionProvider = vision.NewMockImageProvider()
		log.Println("⚠ Using mock image analysis provider (no OpenAI API key)")
	}

	// Initialize adapters
	interactionAdapter := database.NewInteractionAdapter(pgClient)
	profileAdapter := database.NewProfileAdapter(pgClient)
	searchLogAdapter := database.NewSearchLogAdapter(pgClient)
	searchAdapter := search.NewTypesenseAdapter(typesenseClient)

	// Initialize services
	parser := services.NewConstraintParser()
	personalizationService := services.NewPersonalizationService(
		interactionAdapter, profileAdapter, cfg.Search.RecentEventWindow)
	retrievalService := services.NewRetrievalService(
		searchAdapter, cfg.Search.HitsPerPage, cfg.Search.BranchTimeout)
	discoveryService := services.NewDiscoveryService(searchAdapter)
	expansionService := services.NewTermExpansionService(searchLogAdapter)
	analyticsService := services.NewSearchAnalyticsService(searchLogAdapter)
	resultCache := services.NewResultCache(cfg.Search.ResultCacheTTL)

	orchestrator := services.NewSearchOrchestrator(
		parser,
		personalizationService,
		retrievalService,
		discoveryService,
		expansionService,
		analyticsService,
		visionProvider,
		resultCache,
		cfg.Search.DefaultDiscoveryPct,
	)

	// Initialize handlers
	searchHandler := handlers.NewSearchHandler(orchestrator, analyticsService)
	interactionHandler := handlers.NewInteractionHandler(personalizationService, orchestrator)
	profileHandler := handlers.NewProfileHandler(personalizationService, orchestrator)

	// Set up routes
	router := routes.NewRouter(searchHandler, interactionHandler, profileHandler)
	handler := router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
