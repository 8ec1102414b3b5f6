// File: internal/storage/migrations.go
package storage

import (
	"time"

	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// Migration represents a database migration
type Migration struct {
	Version     string    `db:"version"`
	Description string    `db:"description"`
	SQL         string    `db:"sql"`
	AppliedAt   time.Time `db:"applied_at"`
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create error_groups table",
			SQL: `
				CREATE TABLE IF NOT EXISTS error_groups (
					id TEXT PRIMARY KEY,
					fingerprint TEXT NOT NULL,
					error_type TEXT NOT NULL,
					severity TEXT NOT NULL,
					source TEXT NOT NULL,
					message_pattern TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'OPEN',
					assigned_to TEXT,
					notes TEXT,
					total_occurrences INTEGER NOT NULL DEFAULT 0,
					first_seen DATETIME NOT NULL,
					last_seen DATETIME NOT NULL
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_groups_fingerprint ON error_groups(fingerprint);
				CREATE INDEX IF NOT EXISTS idx_groups_error_type ON error_groups(error_type);
				CREATE INDEX IF NOT EXISTS idx_groups_severity ON error_groups(severity);
				CREATE INDEX IF NOT EXISTS idx_groups_status ON error_groups(status);
				CREATE INDEX IF NOT EXISTS idx_groups_last_seen ON error_groups(last_seen);
			`,
		},
		{
			Version:     "002",
			Description: "Create error_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS error_events (
					id TEXT PRIMARY KEY,
					group_id TEXT REFERENCES error_groups(id) ON DELETE CASCADE,
					message TEXT NOT NULL,
					error_type TEXT NOT NULL,
					severity TEXT NOT NULL,
					source TEXT NOT NULL,
					stack_trace TEXT,
					endpoint TEXT,
					method TEXT,
					status_code INTEGER,
					user_id TEXT,
					ip_address TEXT,
					user_agent TEXT,
					metadata TEXT, -- JSON
					status TEXT NOT NULL DEFAULT 'OPEN',
					assigned_to TEXT,
					notes TEXT,
					timestamp DATETIME NOT NULL,
					resolved_at DATETIME
				);

				CREATE INDEX IF NOT EXISTS idx_events_group_id ON error_events(group_id);
				CREATE INDEX IF NOT EXISTS idx_events_error_type ON error_events(error_type);
				CREATE INDEX IF NOT EXISTS idx_events_severity ON error_events(severity);
				CREATE INDEX IF NOT EXISTS idx_events_source ON error_events(source);
				CREATE INDEX IF NOT EXISTS idx_events_status ON error_events(status);
				CREATE INDEX IF NOT EXISTS idx_events_timestamp ON error_events(timestamp);
			`,
		},
		{
			Version:     "003",
			Description: "Create alert_rules table",
			SQL: `
				CREATE TABLE IF NOT EXISTS alert_rules (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					condition TEXT NOT NULL,
					error_type TEXT,
					severity TEXT,
					source TEXT,
					condition_params TEXT, -- JSON
					notification_channels TEXT NOT NULL, -- JSON
					notification_config TEXT, -- JSON
					cooldown_minutes INTEGER NOT NULL DEFAULT 15,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					last_triggered DATETIME,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_rules_is_active ON alert_rules(is_active);
				CREATE INDEX IF NOT EXISTS idx_rules_condition ON alert_rules(condition);
			`,
		},
		{
			Version:     "004",
			Description: "Create notification_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notification_logs (
					id TEXT PRIMARY KEY,
					alert_rule_id TEXT NOT NULL,
					channel TEXT NOT NULL,
					recipient TEXT NOT NULL,
					subject TEXT NOT NULL,
					message TEXT NOT NULL,
					sent_successfully BOOLEAN NOT NULL DEFAULT FALSE,
					error_message TEXT,
					created_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_notification_logs_rule ON notification_logs(alert_rule_id);
				CREATE INDEX IF NOT EXISTS idx_notification_logs_created_at ON notification_logs(created_at);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create error_groups table",
			SQL: `
				CREATE TABLE IF NOT EXISTS error_groups (
					id TEXT PRIMARY KEY,
					fingerprint TEXT NOT NULL,
					error_type TEXT NOT NULL,
					severity TEXT NOT NULL,
					source TEXT NOT NULL,
					message_pattern TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'OPEN',
					assigned_to TEXT,
					notes TEXT,
					total_occurrences BIGINT NOT NULL DEFAULT 0,
					first_seen TIMESTAMPTZ NOT NULL,
					last_seen TIMESTAMPTZ NOT NULL
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_groups_fingerprint ON error_groups(fingerprint);
				CREATE INDEX IF NOT EXISTS idx_groups_error_type ON error_groups(error_type);
				CREATE INDEX IF NOT EXISTS idx_groups_severity ON error_groups(severity);
				CREATE INDEX IF NOT EXISTS idx_groups_status ON error_groups(status);
				CREATE INDEX IF NOT EXISTS idx_groups_last_seen ON error_groups(last_seen);
			`,
		},
		{
			Version:     "002",
			Description: "Create error_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS error_events (
					id TEXT PRIMARY KEY,
					group_id TEXT REFERENCES error_groups(id) ON DELETE CASCADE,
					message TEXT NOT NULL,
					error_type TEXT NOT NULL,
					severity TEXT NOT NULL,
					source TEXT NOT NULL,
					stack_trace TEXT,
					endpoint TEXT,
					method TEXT,
					status_code INTEGER,
					user_id TEXT,
					ip_address TEXT,
					user_agent TEXT,
					metadata JSONB,
					status TEXT NOT NULL DEFAULT 'OPEN',
					assigned_to TEXT,
					notes TEXT,
					timestamp TIMESTAMPTZ NOT NULL,
					resolved_at TIMESTAMPTZ
				);

				CREATE INDEX IF NOT EXISTS idx_events_group_id ON error_events(group_id);
				CREATE INDEX IF NOT EXISTS idx_events_error_type ON error_events(error_type);
				CREATE INDEX IF NOT EXISTS idx_events_severity ON error_events(severity);
				CREATE INDEX IF NOT EXISTS idx_events_source ON error_events(source);
				CREATE INDEX IF NOT EXISTS idx_events_status ON error_events(status);
				CREATE INDEX IF NOT EXISTS idx_events_timestamp ON error_events(timestamp);
			`,
		},
		{
			Version:     "003",
			Description: "Create alert_rules table",
			SQL: `
				CREATE TABLE IF NOT EXISTS alert_rules (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					condition TEXT NOT NULL,
					error_type TEXT,
					severity TEXT,
					source TEXT,
					condition_params JSONB,
					notification_channels JSONB NOT NULL,
					notification_config JSONB,
					cooldown_minutes INTEGER NOT NULL DEFAULT 15,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					last_triggered TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_rules_is_active ON alert_rules(is_active);
				CREATE INDEX IF NOT EXISTS idx_rules_condition ON alert_rules(condition);
			`,
		},
		{
			Version:     "004",
			Description: "Create notification_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notification_logs (
					id TEXT PRIMARY KEY,
					alert_rule_id TEXT NOT NULL,
					channel TEXT NOT NULL,
					recipient TEXT NOT NULL,
					subject TEXT NOT NULL,
					message TEXT NOT NULL,
					sent_successfully BOOLEAN NOT NULL DEFAULT FALSE,
					error_message TEXT,
					created_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_notification_logs_rule ON notification_logs(alert_rule_id);
				CREATE INDEX IF NOT EXISTS idx_notification_logs_created_at ON notification_logs(created_at);
			`,
		},
	}
}

// runMigrations applies pending migrations in order, tracking applied
// versions in schema_migrations.
func runMigrations(s *sqlStore, migrations []*Migration) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create schema_migrations table", err.Error())
	}

	for _, migration := range migrations {
		var count int
		query := s.rebind(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`)
		if err := s.db.QueryRow(query, migration.Version).Scan(&count); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to check migration status", err.Error())
		}
		if count > 0 {
			continue
		}

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				"Failed to apply migration "+migration.Version, err.Error())
		}

		insert := s.rebind(`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`)
		if _, err := s.db.Exec(insert, migration.Version, migration.Description, time.Now().UTC()); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record migration", err.Error())
		}

		s.logger.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applied database migration")
	}
	return nil
}
