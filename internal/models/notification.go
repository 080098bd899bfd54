package models

import "time"

// NotificationLevel grades a notification.
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient, non-blocking message for the operator.
type Notification struct {
	ID        string            `json:"id"`
	Seq       uint64            `json:"seq"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Code      string            `json:"code,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
