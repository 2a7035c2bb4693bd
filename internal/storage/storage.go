// Package storage defines the snapshot backend interface and the factory
// that selects an implementation from configuration.
package storage

import "github.com/memomap/memomap/internal/model"

// Backend is the interface all snapshot storage implementations must satisfy.
// A snapshot is the whole marker collection: Save replaces the single stored
// slot, Load returns it in saved order. Filter state is never stored.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Snapshot slot
	Load() ([]model.Marker, error)
	Save(markers []model.Marker) error
}
