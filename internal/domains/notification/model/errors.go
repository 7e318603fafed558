package model

import "errors"

// ================================================
// DOMAIN-SPECIFIC ERRORS
// ================================================

var (
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrUnknownEventKind      = errors.New("unknown borrowing event kind")
	ErrInvalidNotificationID = errors.New("invalid notification id")
)

const (
	ErrCodeNotificationNotFound  = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidNotificationID = "INVALID_NOTIFICATION_ID"
)
