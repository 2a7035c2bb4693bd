// Package gormstore implements the storage.Backend snapshot slot on top of a
// GORM connection. SQLite and Postgres backends wrap it via composition; the
// only driver-specific concern left to them is opening the connection.
package gormstore

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
)

// MarkerRecord is the persisted row for one marker. Seq keeps the snapshot's
// collection order; Categories round-trips the ordered tag list as JSON.
type MarkerRecord struct {
	Seq        int    `gorm:"primaryKey;autoIncrement:false"`
	MarkerID   string `gorm:"uniqueIndex;size:64"`
	Lat        float64
	Lng        float64
	Title      string
	Memo       *string
	Categories datatypes.JSON
}

// TableName sets the table name for GORM.
func (MarkerRecord) TableName() string {
	return "markers"
}

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend stores the marker snapshot in a single database table,
// replacing the whole table on every save.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection provided")
	}
	if err := b.deps.DB.AutoMigrate(&MarkerRecord{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// Save replaces the stored snapshot with the given markers in one transaction.
func (b *Backend) Save(markers []model.Marker) error {
	records := make([]MarkerRecord, 0, len(markers))
	for i, m := range markers {
		cats, err := json.Marshal(m.Categories)
		if err != nil {
			return fmt.Errorf("failed to encode categories for %s: %w", m.ID, err)
		}
		records = append(records, MarkerRecord{
			Seq:        i,
			MarkerID:   m.ID,
			Lat:        m.Position.Lat,
			Lng:        m.Position.Lng,
			Title:      m.Title,
			Memo:       m.Memo,
			Categories: datatypes.JSON(cats),
		})
	}

	return b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&MarkerRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		return nil
	})
}

// Load reads the stored snapshot in saved order. A corrupt row fails the
// whole load; the caller decides what to do with a failed snapshot.
func (b *Backend) Load() ([]model.Marker, error) {
	var records []MarkerRecord
	if err := b.deps.DB.Order("seq").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	markers := make([]model.Marker, 0, len(records))
	for _, r := range records {
		var cats []model.Category
		if err := json.Unmarshal(r.Categories, &cats); err != nil {
			return nil, fmt.Errorf("failed to decode categories for %s: %w", r.MarkerID, err)
		}
		markers = append(markers, model.Marker{
			ID:         r.MarkerID,
			Position:   model.Position{Lat: r.Lat, Lng: r.Lng},
			Title:      r.Title,
			Memo:       r.Memo,
			Categories: cats,
		})
	}
	return markers, nil
}
