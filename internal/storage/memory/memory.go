package memory

import (
	"sync"

	"github.com/memomap/memomap/internal/model"
)

// Backend keeps the snapshot in memory. Used in tests and as a throwaway
// backend when persistence is disabled.
type Backend struct {
	mu       sync.RWMutex
	snapshot []model.Marker
	saves    int
}

// New creates a new memory backend.
func New() *Backend {
	return &Backend{}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Save replaces the stored snapshot.
func (b *Backend) Save(markers []model.Marker) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = make([]model.Marker, len(markers))
	for i, m := range markers {
		b.snapshot[i] = m.Clone()
	}
	b.saves++
	return nil
}

// Load returns the stored snapshot in saved order.
func (b *Backend) Load() ([]model.Marker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Marker, len(b.snapshot))
	for i, m := range b.snapshot {
		out[i] = m.Clone()
	}
	return out, nil
}

// SaveCount returns how many times Save has been called.
func (b *Backend) SaveCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}
