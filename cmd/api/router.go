package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/internal/shared/middleware"
	"library-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	auth := middleware.AuthMiddleware(c.JWTManager)
	admin := middleware.AdminMiddleware()

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		c.BorrowingHandler.RegisterRoutes(v1, auth, admin)
		setupNotificationRoutes(v1, c, auth)
	}

	return router
}

// ========================================
// NOTIFICATION ROUTES
// ========================================
func setupNotificationRoutes(v1 *gin.RouterGroup, c *container.Container, auth gin.HandlerFunc) {
	notifications := v1.Group("/notifications", auth)
	{
		notifications.GET("", c.NotificationHandler.ListNotifications)
		notifications.GET("/unread-count", c.NotificationHandler.GetUnreadCount)
		notifications.POST("/mark-read", c.NotificationHandler.MarkAsRead)
		notifications.PUT("/read-all", c.NotificationHandler.MarkAllAsRead)
		notifications.DELETE("/:id", c.NotificationHandler.DeleteNotification)
		notifications.DELETE("", c.NotificationHandler.DeleteAllNotifications)
	}
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{}

		if err := c.DB.Ping(checkCtx); err != nil {
			status = http.StatusServiceUnavailable
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}

		// Redis only backs the cache and the event queue
		if err := c.Redis.HealthCheck(checkCtx); err != nil {
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}

		if stats, err := c.DB.Stats(); err == nil {
			checks["pool"] = stats
		}

		ctx.JSON(status, gin.H{
			"status":  http.StatusText(status),
			"version": c.Config.App.Version,
			"checks":  checks,
		})
	}
}
