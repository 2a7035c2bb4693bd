// Package postgres implements the storage.Backend interface over a Postgres
// connection, wrapping the shared GORM backend.
package postgres

import (
	"fmt"

	"github.com/memomap/memomap/internal/database"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/storage/gormstore"
)

// Backend wraps the GORM backend for Postgres-specific behavior.
type Backend struct {
	*gormstore.Backend
}

// New creates a new Postgres storage backend. The connection parameters come
// from viper (db.host, db.port, db.username, db.password, db.database).
func New(logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetPostgresDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	return &Backend{
		Backend: gormstore.New(gormstore.Dependencies{
			DB:         db,
			LogManager: logManager,
		}),
	}, nil
}
