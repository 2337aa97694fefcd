package models

import (
	"strings"
	"time"
)

// NotificationType classifies a notification
type NotificationType string

const (
	NotificationAlert   NotificationType = "alert"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
)

// Notification is a message addressed to a single user account
type Notification struct {
	ID      string           `json:"id"`
	UserID  string           `json:"userId" validate:"required"`
	Type    NotificationType `json:"type" validate:"required,oneof=alert info warning"`
	Message string           `json:"message" validate:"required"`
	Date    string           `json:"date"`
	Read    bool             `json:"read"`
}

// ApplyDefaults trims input and fills defaulted fields
func (n *Notification) ApplyDefaults(now time.Time) {
	n.ID = strings.TrimSpace(n.ID)
	n.Message = strings.TrimSpace(n.Message)
	if n.Date == "" {
		n.Date = now.UTC().Format(time.RFC3339)
	}
}

// OwningUserID implements the user ownership contract
func (n *Notification) OwningUserID() string {
	return n.UserID
}
