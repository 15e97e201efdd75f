package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recettes-ai/backend/internal/api"
	"github.com/recettes-ai/backend/internal/middleware"
	"github.com/recettes-ai/backend/pkg/logger"
)

// Options carries the collaborators the router wires together.
type Options struct {
	RecipeHandler   *api.RecipeHandler
	MetadataHandler *api.MetadataHandler
	RateLimiter     *middleware.RateLimiter
	FrontendURL     string
	Logger          *logger.Logger
}

// SetupRouter configures the application routes
func SetupRouter(opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.CORS(opts.FrontendURL))
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.Middleware())
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "API Recettes - Version 1.0.0",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"endpoints": gin.H{
				"health":   "/api/health",
				"recipes":  "/api/recipes",
				"metadata": "/api/metadata",
			},
		})
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"success":   true,
				"message":   "API opérationnelle",
				"version":   "1.0.0",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})

		opts.RecipeHandler.RegisterRoutes(apiGroup)
		opts.MetadataHandler.RegisterRoutes(apiGroup)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Route " + c.Request.Method + " " + c.Request.URL.Path + " non trouvée",
		})
	})

	return router
}
