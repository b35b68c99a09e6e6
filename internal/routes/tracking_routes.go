package routes

import (
	"waste_tracker/internal/controllers"

	"github.com/gin-gonic/gin"
)

// TrackingRoutes exposes the live tracking socket. Authentication happens
// inside the handler via the token query parameter, since browser WebSocket
// clients cannot set headers.
func TrackingRoutes(r *gin.Engine) {
	ws := r.Group("/ws")
	{
		ws.GET("/track", controllers.HandleTrackingWebSocket)
	}
}
