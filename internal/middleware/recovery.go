package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recettes-ai/backend/pkg/logger"
)

// Recovery converts panics into the standard JSON error envelope so no error
// ever reaches the transport layer unformatted.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"request_id", c.GetString(RequestIDKey),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Erreur interne du serveur",
				})
			}
		}()
		c.Next()
	}
}
