package model

// ================================================
// DTOs
// ================================================

type MarkAsReadRequest struct {
	NotificationIDs []string `json:"notification_ids" binding:"required,min=1"`
}

type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	Unread        int            `json:"unread"`
}
