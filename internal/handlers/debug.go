package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-chat-service/internal/telemetry"
)

// RegisterDebugRoutes mounts operator-only endpoints. Off unless the
// DEBUG_ROUTES flag enables them; never exposed in production configs.
func RegisterDebugRoutes(router *gin.Engine, audit *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	// Pushes one audit envelope through the live publisher so an operator
	// can confirm the broker path end to end.
	router.GET("/debug/audit-test", func(c *gin.Context) {
		if audit == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		audit.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
