// Package sqlitestorage implements the storage.Backend interface using a
// SQLite database file. It wraps the shared GORM backend; the only
// SQLite-specific concern is opening the connection.
package sqlitestorage

import (
	"fmt"

	"github.com/memomap/memomap/internal/config"
	"github.com/memomap/memomap/internal/database"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/storage/gormstore"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstore.Backend
}

// New creates a new SQLite storage backend.
func New(cfg config.SqliteConfig, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstore.New(gormstore.Dependencies{
			DB:         db,
			LogManager: logManager,
		}),
	}, nil
}
