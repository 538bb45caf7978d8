package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wardrobe-chat-service/internal/ratelimit"
)

// SendRateLimit rejects requests exceeding the caller's send budget.
// Runs after AuthMiddleware; unauthenticated requests fall through untouched.
func SendRateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		if userID == "" {
			c.Next()
			return
		}
		if !limiter.Allow(userID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
			return
		}
		c.Next()
	}
}
