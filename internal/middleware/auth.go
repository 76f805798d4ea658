package middleware

import (
	"net/http"

	"membership-api/internal/config"
	"membership-api/internal/response"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards the admin settings routes with the
// configured API key.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		configured := config.AppConfig.AdminAPIKey
		if configured == "" {
			c.JSON(http.StatusServiceUnavailable, response.Error("Admin API is not configured"))
			c.Abort()
			return
		}

		if apiKey != configured {
			c.JSON(http.StatusUnauthorized, response.Error("Invalid api_key"))
			c.Abort()
			return
		}

		c.Next()
	}
}
