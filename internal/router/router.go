package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/upwatch-dev/upwatch/internal/handlers"
	"github.com/upwatch-dev/upwatch/internal/middleware"
	"github.com/upwatch-dev/upwatch/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "X-Org-ID", "X-User", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.OrgScope(), handlers.WebSocket)

		scoped := api.Group("", middleware.OrgScope())
		{
			// Monitor endpoints
			scoped.POST("/monitors", handlers.CreateMonitor)
			scoped.GET("/monitors", handlers.GetMonitors)
			scoped.GET("/monitors/:monitor_id", handlers.GetMonitor)
			scoped.PUT("/monitors/:monitor_id", handlers.UpdateMonitor)
			scoped.DELETE("/monitors/:monitor_id", handlers.DeleteMonitor)
			scoped.GET("/monitors/:monitor_id/stats", handlers.GetMonitorStats)
			scoped.GET("/monitors/:monitor_id/events", handlers.GetMonitorEvents)

			// Alert rules
			scoped.GET("/monitors/:monitor_id/alert-rules", handlers.GetAlertRules)
			scoped.POST("/monitors/:monitor_id/alert-rules", handlers.CreateAlertRule)
			scoped.DELETE("/monitors/:monitor_id/alert-rules/:rule_id", handlers.DeleteAlertRule)
			scoped.GET("/monitors/:monitor_id/alert-history", handlers.GetAlertHistory)

			// Incident endpoints
			scoped.GET("/incidents", handlers.GetIncidents)
			scoped.PATCH("/incidents/:incident_id/acknowledge", handlers.AcknowledgeIncident)
			scoped.PATCH("/incidents/:incident_id/resolve", handlers.ResolveIncident)

			// Notification channels
			scoped.GET("/notification-channels", handlers.GetChannels)
			scoped.POST("/notification-channels", handlers.CreateChannel)
			scoped.PUT("/notification-channels/:channel_id", handlers.UpdateChannel)
			scoped.DELETE("/notification-channels/:channel_id", handlers.DeleteChannel)
			scoped.POST("/notification-channels/:channel_id/test", handlers.TestChannel)
		}
	}

	return r
}
