// File: internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// NewStorage creates a storage instance for the configured backend
func NewStorage(config *StorageConfig) (Storage, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteStorage(config), nil
	case "postgres":
		return NewPostgresStorage(config), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			fmt.Sprintf("Unsupported storage type: %s", config.Type), "")
	}
}
