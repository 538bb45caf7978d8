package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wardrobe-chat-service/internal/telemetry"
)

// RegisterDebugRoutes mounts endpoints that only exist when debug mode is on.
// Nothing here is registered in production configs.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	// Fires a synthetic audit event so the bus wiring can be verified end to end.
	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
