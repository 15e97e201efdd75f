package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recettes-ai/backend/config"
	"github.com/recettes-ai/backend/internal/airtable"
	"github.com/recettes-ai/backend/internal/api"
	"github.com/recettes-ai/backend/internal/database"
	"github.com/recettes-ai/backend/internal/middleware"
	"github.com/recettes-ai/backend/internal/router"
	"github.com/recettes-ai/backend/internal/server"
	"github.com/recettes-ai/backend/internal/service"
	"github.com/recettes-ai/backend/pkg/logger"
)

func main() {
	log := logger.New("api")
	defer log.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Redis serves the list/metadata cache and the rate limiter. The API can
	// run without it, just slower and unthrottled.
	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Warnw("Redis unavailable, running without cache and rate limiting", "error", err)
		redisClient = nil
	}

	store := airtable.NewClient(cfg.AirtableAPIKey, cfg.AirtableBaseID)

	recipeService := service.NewRecipeService(store, cfg.RecipesTable, redisClient, log)
	llmService := service.NewLLMService(cfg.OllamaBaseURL, cfg.OllamaModel, log)
	metadataService := service.NewMetadataService(store, service.MetadataTables{
		Allergens:   cfg.AllergensTable,
		DishTypes:   cfg.DishTypesTable,
		Ingredients: cfg.IngredientsTable,
	}, redisClient, log)

	var rateLimiter *middleware.RateLimiter
	if redisClient != nil {
		rateLimiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Window: cfg.RateLimitWindow,
			Limit:  cfg.RateLimitMax,
		})
	}

	engine := router.SetupRouter(router.Options{
		RecipeHandler:   api.NewRecipeHandler(recipeService, llmService, log),
		MetadataHandler: api.NewMetadataHandler(metadataService, log),
		RateLimiter:     rateLimiter,
		FrontendURL:     cfg.FrontendURL,
		Logger:          log,
	})

	srv := server.New(engine, cfg.ServerHost, cfg.ServerPort)

	errChan := make(chan error, 1)
	go func() {
		log.Infow("starting server", "host", cfg.ServerHost, "port", cfg.ServerPort)
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalw("server error", "error", err)
		}
	case sig := <-quit:
		log.Infow("received signal", "signal", sig.String())
	}

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server shutdown error", "error", err)
	}
	log.Info("server stopped")
}
