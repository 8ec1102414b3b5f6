// File: internal/storage/postgres.go
package storage

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// PostgresStorage implements Storage on a PostgreSQL database
type PostgresStorage struct {
	sqlStore
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(config *StorageConfig) *PostgresStorage {
	return &PostgresStorage{
		sqlStore: sqlStore{
			config: config,
			logger: utils.GetLogger(),
			dialect: dialect{
				name:     "postgres",
				rebind:   true,
				least:    "LEAST",
				greatest: "GREATEST",
				dateExpr: "to_char(timestamp, 'YYYY-MM-DD')",
			},
		},
	}
}

// Connect establishes the database connection
func (s *PostgresStorage) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxIdleTime(s.config.MaxIdleTime)

	// Test the connection
	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	s.db = db
	s.logger.Info("Connected to PostgreSQL database")
	return nil
}

// Migrate runs database migrations
func (s *PostgresStorage) Migrate() error {
	return runMigrations(&s.sqlStore, GetPostgresMigrations())
}
