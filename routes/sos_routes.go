package routes

import (
	"context"
	"net/http"

	handlers "sosline/internal/handlers/shared"
	"sosline/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupSOSRoutes sets up the responder-only record endpoints.
func SetupSOSRoutes(r *gin.RouterGroup, sosHandler *handlers.SOSHandler, auth, responders gin.HandlerFunc) {
	sos := r.Group("/sos")
	sos.Use(auth, responders)
	{
		sos.GET("/active", sosHandler.ListActive)
		sos.GET("/history", sosHandler.ListHistory)
		sos.GET("/:id", sosHandler.GetEvent)
		sos.POST("/:id/cancel", sosHandler.CancelEvent)
	}
}

// SetupWebSocketRoutes mounts the signaling endpoint. Any authenticated
// user may connect; what they may do is decided per message.
func SetupWebSocketRoutes(r gin.IRouter, path string, wsHandler *websocket.Handler, auth gin.HandlerFunc) {
	r.GET(path, auth, wsHandler.HandleWebSocket)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// SetupHealthRoutes exposes liveness, readiness and the metrics scrape.
func SetupHealthRoutes(r gin.IRouter, version string, hub *websocket.Hub, metricsHandler http.Handler, checks map[string]HealthChecker) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"version":  version,
			"sessions": hub.SessionCount(),
			"rooms":    hub.RoomCount(),
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		failures := make(map[string]string)
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failures})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsHandler))
}
