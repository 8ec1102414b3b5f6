// File: internal/models/notification.go
package models

import (
	"time"
)

// NotificationLog records one delivery attempt for one channel of a firing
type NotificationLog struct {
	ID          string              `json:"id" db:"id"`
	AlertRuleID string              `json:"alert_rule_id" db:"alert_rule_id"`
	Channel     NotificationChannel `json:"channel" db:"channel"`
	Recipient   string              `json:"recipient" db:"recipient"`
	Subject     string              `json:"subject" db:"subject"`
	Message     string              `json:"message" db:"message"`
	Sent        bool                `json:"sent_successfully" db:"sent_successfully"`
	Error       string              `json:"error_message,omitempty" db:"error_message"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
}
