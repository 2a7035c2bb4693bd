// Package store holds the authoritative marker collection and filter state.
// Every mutation in the system lands here; everything else observes the
// resulting state broadcasts.
package store

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/memomap/memomap/internal/bus"
	"github.com/memomap/memomap/internal/cache"
	"github.com/memomap/memomap/internal/event"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
	"github.com/memomap/memomap/internal/storage"
)

// Persister accepts marker snapshots for background writing.
type Persister interface {
	Enqueue([]model.Marker)
}

// Dependencies holds all dependencies for the marker store.
type Dependencies struct {
	Bus        *bus.Bus
	Backend    storage.Backend
	Persister  Persister
	LogManager *logging.SlogManager

	// Now is the clock used for id generation. Defaults to time.Now.
	Now func() time.Time
}

// Store is the sole mutation authority for markers and filters. Mutations
// that fail validation are silent no-ops: no error reaches the caller, the
// rejection is only visible in debug logs. Successful mutations synchronously
// broadcast the new state and queue a persistence snapshot.
type Store struct {
	deps    Dependencies
	markers *cache.MarkerIndex

	mu      sync.RWMutex
	filters model.FilterState
}

// New creates a marker store.
func New(deps Dependencies) *Store {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Store{
		deps:    deps,
		markers: cache.NewMarkerIndex(),
		filters: model.NewFilterState(),
	}
}

// Init loads the persisted snapshot. A snapshot that cannot be read, or that
// contains even one invalid record, is discarded wholesale and the store
// starts empty; partial recovery would resurrect records whose meaning is no
// longer trustworthy.
func (s *Store) Init() error {
	logger := s.deps.LogManager.Logger()

	if s.deps.Backend == nil {
		logger.Debug("No storage backend, starting empty")
		return nil
	}

	loaded, err := s.deps.Backend.Load()
	if err != nil {
		logger.Warn("Discarding unreadable snapshot", "error", err)
		return nil
	}

	for _, m := range loaded {
		if !m.Valid() {
			logger.Warn("Discarding snapshot with invalid record", "id", m.ID)
			return nil
		}
	}

	s.markers.ReplaceAll(loaded)
	logger.Info("Snapshot loaded", "markers", len(loaded))
	return nil
}

// RegisterHandlers subscribes the store to its mutation topics.
func (s *Store) RegisterHandlers() {
	b := s.deps.Bus

	b.Subscribe(event.TopicAddMarker, s.handleAdd, bus.Logged())
	b.Subscribe(event.TopicRemoveMarker, s.handleRemove, bus.Logged())
	b.Subscribe(event.TopicUpdateMarker, s.handleUpdate, bus.Logged())
	b.Subscribe(event.TopicToggleFilter, s.handleToggleFilter, bus.Logged())
	b.Subscribe(event.TopicRequestState, s.handleRequestState)
}

// Markers returns a copy of the full collection in insertion order.
func (s *Store) Markers() []model.Marker {
	return s.markers.List()
}

// Marker returns a copy of one marker by id.
func (s *Store) Marker(id string) (model.Marker, bool) {
	m, ok := s.markers.Get(id)
	if !ok {
		return model.Marker{}, false
	}
	return m.Clone(), true
}

// Filters returns a copy of the current filter state.
func (s *Store) Filters() model.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

// VisibleMarkers returns the markers that pass the current filters. A marker
// is visible when any one of its categories is enabled.
func (s *Store) VisibleMarkers() []model.Marker {
	filters := s.Filters()
	all := s.markers.List()
	out := make([]model.Marker, 0, len(all))
	for _, m := range all {
		for _, c := range m.Categories {
			if filters[c] {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// AddMarker registers a new marker and returns its id. Empty categories get
// the default tag; an invalid position or empty title rejects the add and
// returns the empty string.
func (s *Store) AddMarker(pos model.Position, title string, categories []model.Category) string {
	logger := s.deps.LogManager.Logger()

	if !pos.Valid() {
		logger.Debug("Rejected add: invalid position", "lat", pos.Lat, "lng", pos.Lng)
		return ""
	}
	if title == "" {
		logger.Debug("Rejected add: empty title")
		return ""
	}

	tags := model.DedupCategories(categories)
	if len(tags) == 0 {
		tags = []model.Category{model.DefaultCategory}
	}

	id := s.uniqueID(pos)
	s.markers.Add(model.Marker{
		ID:         id,
		Position:   pos,
		Title:      title,
		Categories: tags,
	})

	s.commit()
	return id
}

// DeleteMarker removes a marker. Deleting an unknown id is a no-op that
// still re-broadcasts state, so a stale surface showing the marker closes.
func (s *Store) DeleteMarker(id string) {
	existed := s.markers.Has(id)
	s.markers.Delete(id)
	if !existed {
		s.deps.LogManager.Logger().Debug("Delete of unknown marker", "id", id)
	}
	s.commit()
}

// UpdateTitle renames a marker. Empty titles are rejected.
func (s *Store) UpdateTitle(id, title string) {
	logger := s.deps.LogManager.Logger()

	m, ok := s.markers.Get(id)
	if !ok {
		logger.Debug("Rejected title update: unknown marker", "id", id)
		return
	}
	if title == "" {
		logger.Debug("Rejected title update: empty title", "id", id)
		return
	}

	m.Title = title
	s.markers.Add(m)
	s.commit()
}

// UpdateMemo sets or clears a marker's memo. A nil memo removes it; an empty
// string is a present-but-empty memo.
func (s *Store) UpdateMemo(id string, memo *string) {
	m, ok := s.markers.Get(id)
	if !ok {
		s.deps.LogManager.Logger().Debug("Rejected memo update: unknown marker", "id", id)
		return
	}

	if memo == nil {
		m.Memo = nil
	} else {
		text := *memo
		m.Memo = &text
	}
	s.markers.Add(m)
	s.commit()
}

// UpdateCategories replaces a marker's tags. The set is deduplicated keeping
// first-occurrence order; an update that would leave the marker without any
// valid tag is rejected.
func (s *Store) UpdateCategories(id string, categories []model.Category) {
	logger := s.deps.LogManager.Logger()

	m, ok := s.markers.Get(id)
	if !ok {
		logger.Debug("Rejected category update: unknown marker", "id", id)
		return
	}

	tags := model.DedupCategories(categories)
	if len(tags) == 0 {
		logger.Debug("Rejected category update: no valid categories", "id", id)
		return
	}

	m.Categories = tags
	s.markers.Add(m)
	s.commit()
}

// UpdatePosition moves a marker, keeping its id. Ids encode the creation
// position but are opaque once assigned, so a moved marker keeps the old one.
func (s *Store) UpdatePosition(id string, pos model.Position) {
	logger := s.deps.LogManager.Logger()

	m, ok := s.markers.Get(id)
	if !ok {
		logger.Debug("Rejected move: unknown marker", "id", id)
		return
	}
	if !pos.Valid() {
		logger.Debug("Rejected move: invalid position", "id", id, "lat", pos.Lat, "lng", pos.Lng)
		return
	}

	m.Position = pos
	s.markers.Add(m)
	s.commit()
}

// ToggleFilter flips one category's visibility. Filters are never persisted,
// so this broadcasts without queueing a snapshot.
func (s *Store) ToggleFilter(c model.Category) {
	if !c.Valid() {
		s.deps.LogManager.Logger().Debug("Rejected filter toggle: unknown category", "category", c)
		return
	}

	s.mu.Lock()
	s.filters[c] = !s.filters[c]
	s.mu.Unlock()

	s.broadcast()
}

// Broadcast publishes the current state. Late subscribers call this through
// the request-state topic to catch up.
func (s *Store) Broadcast() {
	s.broadcast()
}

// MarkerCount returns the number of live markers. Used for log context and
// status reporting.
func (s *Store) MarkerCount() int {
	return s.markers.Len()
}

// uniqueID builds the position+timestamp id, suffixing a counter in the
// unlikely case two markers land on the same spot in the same millisecond.
func (s *Store) uniqueID(pos model.Position) string {
	base := model.NewMarkerID(pos, s.deps.Now())
	id := base
	for n := 1; s.markers.Has(id); n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	return id
}

// commit broadcasts the new state and queues a persistence snapshot. The
// writer and the broadcast each get their own copy; the writer goroutine
// reads its snapshot after this call returns.
func (s *Store) commit() {
	if s.deps.Persister != nil {
		s.deps.Persister.Enqueue(s.markers.List())
	}
	s.publishState(s.markers.List())
}

func (s *Store) broadcast() {
	s.publishState(s.markers.List())
}

func (s *Store) publishState(markers []model.Marker) {
	if s.deps.Bus == nil {
		return
	}
	s.deps.Bus.Publish(event.State{
		Markers: markers,
		Filters: s.Filters(),
	})
}

// Bus event handlers. These unwrap the typed payloads and funnel into the
// direct operations above.

func (s *Store) handleAdd(e event.Event) error {
	add, ok := e.(event.AddMarker)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	s.AddMarker(add.Position, add.Title, add.Categories)
	return nil
}

func (s *Store) handleRemove(e event.Event) error {
	rm, ok := e.(event.RemoveMarker)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	s.DeleteMarker(rm.ID)
	return nil
}

// handleUpdate applies a partial edit atomically: if any provided field fails
// validation the whole event is dropped.
func (s *Store) handleUpdate(e event.Event) error {
	up, ok := e.(event.UpdateMarker)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}

	logger := s.deps.LogManager.Logger()

	m, found := s.markers.Get(up.ID)
	if !found {
		logger.Debug("Rejected update: unknown marker", "id", up.ID)
		return nil
	}

	if up.Title != nil {
		if *up.Title == "" {
			logger.Debug("Rejected update: empty title", "id", up.ID)
			return nil
		}
		m.Title = *up.Title
	}
	if up.Memo != nil {
		text := *up.Memo
		m.Memo = &text
	}
	if up.Categories != nil {
		tags := model.DedupCategories(up.Categories)
		if len(tags) == 0 {
			logger.Debug("Rejected update: no valid categories", "id", up.ID)
			return nil
		}
		m.Categories = tags
	}
	if up.Position != nil {
		if !up.Position.Valid() {
			logger.Debug("Rejected update: invalid position", "id", up.ID)
			return nil
		}
		m.Position = *up.Position
	}

	s.markers.Add(m)
	s.commit()
	return nil
}

func (s *Store) handleToggleFilter(e event.Event) error {
	tf, ok := e.(event.ToggleFilter)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	s.ToggleFilter(tf.Category)
	return nil
}

func (s *Store) handleRequestState(e event.Event) error {
	s.broadcast()
	return nil
}
