package storage

import (
	"fmt"

	"github.com/memomap/memomap/internal/config"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/storage/file"
	"github.com/memomap/memomap/internal/storage/memory"
	"github.com/memomap/memomap/internal/storage/postgres"
	sqlitestorage "github.com/memomap/memomap/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(logManager)
	case "sqlite":
		return sqlitestorage.New(cfg.Sqlite, logManager)
	case "file":
		return file.New(cfg.File), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
