package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fk00750/authguard/internal/core/port"
)

// RateLimit bounds attempts per client IP inside the store's sliding window.
// A store failure lets the request through.
func RateLimit(store port.RateLimitStore, scope string, limit int, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	if store == nil || limit <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		count, err := store.Increment(c.Request.Context(), scope, c.ClientIP())
		if err != nil {
			log.Warn("rate limit store failed",
				zap.String("scope", scope),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if count > limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				newErrorResponse(c, "too many requests, slow down"))
			return
		}

		c.Next()
	}
}
