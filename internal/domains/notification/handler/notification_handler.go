package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/notification/model"
	"library-backend/internal/domains/notification/service"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/response"
)

// ================================================
// NOTIFICATION HANDLER
// ================================================

type notificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) NotificationHandler {
	return &notificationHandler{
		notificationService: notificationService,
	}
}

// ================================================
// LIST NOTIFICATIONS
// GET /api/v1/notifications
// ================================================

func (h *notificationHandler) ListNotifications(c *gin.Context) {
	// 1. GET USER ID FROM AUTH CONTEXT
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	// 2. PAGINATION
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	// 3. CALL SERVICE
	result, err := h.notificationService.ListNotifications(c.Request.Context(), userID, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list notifications")
		response.InternalServerError(c, "Failed to list notifications")
		return
	}

	response.Success(c, http.StatusOK, "Notifications retrieved successfully", result)
}

// ================================================
// MARK AS READ
// POST /api/v1/notifications/mark-read
// ================================================

func (h *notificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	var req model.MarkAsReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if len(req.NotificationIDs) > 100 {
		response.BadRequest(c, "Maximum 100 notifications can be marked at once")
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), userID, req); err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidNotificationID):
			response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidNotificationID, err.Error())
		case errors.Is(err, model.ErrNotificationNotFound):
			response.ErrorResponse(c, http.StatusNotFound, model.ErrCodeNotificationNotFound, err.Error())
		default:
			log.Error().Err(err).Msg("Failed to mark notifications as read")
			response.InternalServerError(c, "Failed to mark notifications as read")
		}
		return
	}

	response.Success(c, http.StatusOK, "Notifications marked as read", nil)
}

// ================================================
// MARK ALL AS READ
// PUT /api/v1/notifications/read-all
// ================================================

func (h *notificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	count, err := h.notificationService.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to mark all notifications as read")
		response.InternalServerError(c, "Failed to mark all notifications as read")
		return
	}

	response.Success(c, http.StatusOK, "All notifications marked as read", gin.H{"count": count})
}

// ================================================
// GET UNREAD COUNT
// GET /api/v1/notifications/unread-count
// ================================================

func (h *notificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	count, err := h.notificationService.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get unread count")
		response.InternalServerError(c, "Failed to get unread count")
		return
	}

	response.Success(c, http.StatusOK, "Unread count retrieved successfully", gin.H{"count": count})
}

// ================================================
// DELETE NOTIFICATION
// DELETE /api/v1/notifications/:id
// ================================================

func (h *notificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidNotificationID, "Invalid notification ID")
		return
	}

	if err := h.notificationService.DeleteNotification(c.Request.Context(), userID, notificationID); err != nil {
		if errors.Is(err, model.ErrNotificationNotFound) {
			response.ErrorResponse(c, http.StatusNotFound, model.ErrCodeNotificationNotFound, err.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to delete notification")
		response.InternalServerError(c, "Failed to delete notification")
		return
	}

	response.Success(c, http.StatusOK, "Notification deleted", nil)
}

// ================================================
// DELETE ALL NOTIFICATIONS
// DELETE /api/v1/notifications
// ================================================

func (h *notificationHandler) DeleteAllNotifications(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	count, err := h.notificationService.DeleteAllNotifications(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete notifications")
		response.InternalServerError(c, "Failed to delete notifications")
		return
	}

	response.Success(c, http.StatusOK, "Notifications deleted", gin.H{"count": count})
}
