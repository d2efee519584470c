package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/smartcart/backend/config"
	httpDelivery "github.com/smartcart/backend/internal/delivery/http"
	"github.com/smartcart/backend/internal/infrastructure/cache"
	"github.com/smartcart/backend/internal/infrastructure/chp"
	"github.com/smartcart/backend/internal/usecase"
)

func main() {
	// Optional .env for local development; real deployments use env vars
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting SmartCart Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("CHP site: %s (headless=%v, max sessions=%d)",
		cfg.CHP.BaseURL, cfg.CHP.Headless, cfg.CHP.MaxSessions)

	// Initialize infrastructure dependencies
	resultCache := cache.NewMemoryCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	sessionFactory := chp.NewSessionFactory(cfg.CHP)
	extractor := chp.NewExtractor()

	translator := usecase.NewTranslator(cfg.Search.Translations)
	if len(cfg.Search.Translations) > 0 {
		log.Printf("Translation table extended with %d configured entries", len(cfg.Search.Translations))
	}

	// Initialize usecase layer
	searchService := usecase.NewSearchService(
		sessionFactory,
		extractor,
		resultCache,
		translator,
		usecase.SearchServiceConfig{
			TopOffers:    cfg.Search.TopOffers,
			BatchTimeout: cfg.Search.BatchTimeout,
			CacheTTL:     cfg.Cache.TTL,
		},
	)

	log.Printf("Search: top_offers=%d, batch_timeout=%s",
		cfg.Search.TopOffers, cfg.Search.BatchTimeout)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(searchService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
