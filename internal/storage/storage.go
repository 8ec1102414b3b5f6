// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/error-tracker/internal/models"
)

// Storage defines the interface for error, group, rule and notification
// persistence. Implementations must enforce fingerprint uniqueness at the
// database level: InsertGroup returns a CONFLICT_ERROR AppError when another
// writer already owns the fingerprint, and callers recover by re-reading.
type Storage interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Error event operations
	SaveError(ctx context.Context, event *models.ErrorEvent) error
	GetError(ctx context.Context, id string) (*models.ErrorEvent, error)
	GetErrors(ctx context.Context, filter models.ErrorFilter) ([]*models.ErrorEvent, error)
	CountErrors(ctx context.Context, filter models.ErrorFilter) (int64, error)
	UpdateError(ctx context.Context, event *models.ErrorEvent) error
	DeleteError(ctx context.Context, id string) error

	// Group operations
	GetGroup(ctx context.Context, id string) (*models.ErrorGroup, error)
	GetGroupByFingerprint(ctx context.Context, fingerprint string) (*models.ErrorGroup, error)
	InsertGroup(ctx context.Context, group *models.ErrorGroup) error
	GetGroups(ctx context.Context, filter models.GroupFilter) ([]*models.ErrorGroup, error)
	UpdateGroup(ctx context.Context, group *models.ErrorGroup) error
	DeleteGroup(ctx context.Context, id string) error
	ApplyGroupOccurrence(ctx context.Context, groupID string, occurredAt time.Time, severity models.Severity) error
	GetRecentGroupErrors(ctx context.Context, groupID string, limit int) ([]*models.ErrorEvent, error)

	// Alert rule operations
	SaveRule(ctx context.Context, rule *models.AlertRule) error
	GetRule(ctx context.Context, id string) (*models.AlertRule, error)
	GetRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error)
	UpdateRule(ctx context.Context, rule *models.AlertRule) error
	DeleteRule(ctx context.Context, id string) error
	SetRuleLastTriggered(ctx context.Context, id string, at time.Time) error

	// Notification log operations
	SaveNotificationLog(ctx context.Context, log *models.NotificationLog) error
	GetNotificationLogs(ctx context.Context, ruleID string, limit int) ([]*models.NotificationLog, error)

	// Statistics
	GetStatsSummary(ctx context.Context, days int) (*models.StatsSummary, error)
	GetTimeline(ctx context.Context, days int) ([]models.TimelinePoint, error)
	GetTopErrors(ctx context.Context, limit, days int) ([]models.TopError, error)
	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// StorageStats provides storage statistics
type StorageStats struct {
	TotalErrors        int64      `json:"total_errors"`
	TotalGroups        int64      `json:"total_groups"`
	TotalRules         int64      `json:"total_rules"`
	TotalNotifications int64      `json:"total_notifications"`
	OldestError        *time.Time `json:"oldest_error,omitempty"`
	LatestError        *time.Time `json:"latest_error,omitempty"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
	QueryTimeout     time.Duration `json:"query_timeout"`
}
