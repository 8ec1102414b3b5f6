// File: internal/storage/sqlite.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// SQLiteStorage implements Storage on an embedded SQLite database
type SQLiteStorage struct {
	sqlStore
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		sqlStore: sqlStore{
			config: config,
			logger: utils.GetLogger(),
			dialect: dialect{
				name:     "sqlite",
				rebind:   false,
				least:    "MIN",
				greatest: "MAX",
				dateExpr: "date(timestamp)",
			},
		},
	}
}

// Connect establishes the database connection
func (s *SQLiteStorage) Connect() error {
	dbPath := s.config.ConnectionString

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxIdleTime(s.config.MaxIdleTime)

	// Test the connection
	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping SQLite database", err.Error())
	}

	// Enable WAL so readers don't block the ingest path
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return utils.NewAppError(utils.ErrCodeDatabase, fmt.Sprintf("Failed to execute %s", pragma), err.Error())
		}
	}

	s.db = db
	s.logger.WithField("path", dbPath).Info("Connected to SQLite database")
	return nil
}

// Migrate runs database migrations
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(&s.sqlStore, GetSQLiteMigrations())
}
