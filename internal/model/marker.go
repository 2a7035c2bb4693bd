package model

import (
	"fmt"
	"math"
	"time"
)

// Position is a WGS84 latitude/longitude pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the position holds finite coordinates within range.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return false
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Marker is a user-placed point of interest.
//
// Memo distinguishes absence (nil) from an empty user-entered memo ("").
// Categories is non-empty, ordered, and deduplicated; the first entry is the
// primary tag for single-badge rendering.
type Marker struct {
	ID         string     `json:"id"`
	Position   Position   `json:"position"`
	Title      string     `json:"title"`
	Memo       *string    `json:"memo,omitempty"`
	Categories []Category `json:"categories"`
}

// Valid reports whether a marker record is structurally sound. Used during
// load-time reconciliation of the persisted snapshot.
func (m Marker) Valid() bool {
	if m.ID == "" || m.Title == "" {
		return false
	}
	if !m.Position.Valid() {
		return false
	}
	if len(m.Categories) == 0 {
		return false
	}
	for _, c := range m.Categories {
		if !c.Valid() {
			return false
		}
	}
	return true
}

// Primary returns the marker's primary category.
func (m Marker) Primary() Category {
	if len(m.Categories) == 0 {
		return DefaultCategory
	}
	return m.Categories[0]
}

// HasCategory reports whether the marker carries the given tag.
func (m Marker) HasCategory(c Category) bool {
	for _, tag := range m.Categories {
		if tag == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the marker.
func (m Marker) Clone() Marker {
	out := m
	if m.Memo != nil {
		memo := *m.Memo
		out.Memo = &memo
	}
	out.Categories = append([]Category(nil), m.Categories...)
	return out
}

// NewMarkerID builds a marker id from the position and creation time,
// matching the "<lat>,<lng>-<unixMilli>" scheme of the persisted snapshot.
func NewMarkerID(pos Position, created time.Time) string {
	return fmt.Sprintf("%v,%v-%d", pos.Lat, pos.Lng, created.UnixMilli())
}
