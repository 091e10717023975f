package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyMiddleware guards operator endpoints with a shared secret sent as the
// X-API-Key header or the apiKey query parameter. An empty key disables the check.
func APIKeyMiddleware(apiKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			logger.Warn("⚠️  HEALTH_API_KEY not configured, allowing request", zap.String("path", c.Request.URL.Path))
			c.Next()
			return
		}

		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			provided = c.Query("apiKey")
		}

		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			abort(c, http.StatusUnauthorized, "Unauthorized: Invalid or missing API key")
			return
		}

		c.Next()
	}
}
