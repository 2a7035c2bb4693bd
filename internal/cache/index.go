// Package cache holds the in-memory marker collection backing the store.
package cache

import (
	"sync"

	"github.com/memomap/memomap/internal/model"
)

// MarkerIndex is the live marker collection: insertion-ordered, with O(1)
// lookup by id. Latency matters here because every mutation and every state
// broadcast goes through it.
type MarkerIndex struct {
	mu      sync.RWMutex
	order   []string
	markers map[string]model.Marker
}

// NewMarkerIndex creates an empty MarkerIndex.
func NewMarkerIndex() *MarkerIndex {
	return &MarkerIndex{
		markers: make(map[string]model.Marker),
	}
}

// Get retrieves a marker by id.
func (c *MarkerIndex) Get(id string) (model.Marker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.markers[id]
	return m, ok
}

// Has reports whether a marker with the id exists.
func (c *MarkerIndex) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.markers[id]
	return ok
}

// Add appends a marker to the collection. An existing marker with the same id
// is overwritten in place, keeping its position in the order.
func (c *MarkerIndex) Add(m model.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.markers[m.ID]; !ok {
		c.order = append(c.order, m.ID)
	}
	c.markers[m.ID] = m
}

// Delete removes a marker by id, preserving the order of the rest.
// Deleting an unknown id is a no-op.
func (c *MarkerIndex) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.markers[id]; !ok {
		return
	}
	delete(c.markers, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// List returns a deep copy of the collection in insertion order.
func (c *MarkerIndex) List() []model.Marker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Marker, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.markers[id].Clone())
	}
	return out
}

// Len returns the number of markers.
func (c *MarkerIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markers)
}

// ReplaceAll swaps the whole collection for the given markers, keeping their
// slice order. Used when a persisted snapshot is loaded.
func (c *MarkerIndex) ReplaceAll(markers []model.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = make([]string, 0, len(markers))
	c.markers = make(map[string]model.Marker, len(markers))
	for _, m := range markers {
		if _, ok := c.markers[m.ID]; !ok {
			c.order = append(c.order, m.ID)
		}
		c.markers[m.ID] = m.Clone()
	}
}

// Reset clears the collection.
func (c *MarkerIndex) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.markers = make(map[string]model.Marker)
}
