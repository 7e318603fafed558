package handler

import "github.com/gin-gonic/gin"

// ================================================
// HANDLER INTERFACES
// ================================================

type NotificationHandler interface {
	ListNotifications(c *gin.Context)
	MarkAsRead(c *gin.Context)
	MarkAllAsRead(c *gin.Context)
	GetUnreadCount(c *gin.Context)
	DeleteNotification(c *gin.Context)
	DeleteAllNotifications(c *gin.Context)
}
