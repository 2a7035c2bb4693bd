package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/memomap/memomap/internal/bus"
	"github.com/memomap/memomap/internal/event"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
	"github.com/memomap/memomap/internal/storage/memory"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// fakePersister records every enqueued snapshot.
type fakePersister struct {
	mu        sync.Mutex
	snapshots [][]model.Marker
}

func (p *fakePersister) Enqueue(markers []model.Marker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, markers)
}

func (p *fakePersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

func (p *fakePersister) last() []model.Marker {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return nil
	}
	return p.snapshots[len(p.snapshots)-1]
}

type fixture struct {
	store     *Store
	bus       *bus.Bus
	persister *fakePersister
	states    *[]event.State
	clock     *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	b, err := bus.New(nopLogger{})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}

	persister := &fakePersister{}
	now := time.UnixMilli(1700000000000)

	s := New(Dependencies{
		Bus:        b,
		Persister:  persister,
		LogManager: logging.NewSlogManager(),
		Now:        func() time.Time { return now },
	})
	s.RegisterHandlers()

	var states []event.State
	b.Subscribe(event.TopicState, func(e event.Event) error {
		states = append(states, e.(event.State))
		return nil
	})

	return &fixture{store: s, bus: b, persister: persister, states: &states, clock: &now}
}

func seoul() model.Position { return model.Position{Lat: 37.5665, Lng: 126.978} }
func busan() model.Position { return model.Position{Lat: 35.1796, Lng: 129.0756} }

func TestAddMarker_AssignsIDAndDefaults(t *testing.T) {
	f := newFixture(t)

	id := f.store.AddMarker(seoul(), "Seoul Tower", nil)

	if id != "37.5665,126.978-1700000000000" {
		t.Errorf("unexpected id: %s", id)
	}

	markers := f.store.Markers()
	if len(markers) != 1 {
		t.Fatalf("expected 1 marker, got %d", len(markers))
	}
	if markers[0].Categories[0] != model.DefaultCategory {
		t.Errorf("expected default category, got %s", markers[0].Categories[0])
	}
	if markers[0].Memo != nil {
		t.Error("new marker should have no memo")
	}
}

func TestAddMarker_DedupsCategories(t *testing.T) {
	f := newFixture(t)

	id := f.store.AddMarker(seoul(), "Seoul", []model.Category{
		model.CategoryMemory, model.CategorySpring, model.CategoryMemory, "bogus",
	})

	markers := f.store.Markers()
	want := []model.Category{model.CategoryMemory, model.CategorySpring}
	if len(markers[0].Categories) != len(want) {
		t.Fatalf("expected %v, got %v", want, markers[0].Categories)
	}
	for i := range want {
		if markers[0].Categories[i] != want[i] {
			t.Errorf("category %d: got %s, want %s", i, markers[0].Categories[i], want[i])
		}
	}
	if id == "" {
		t.Error("expected an id")
	}
}

func TestAddMarker_RejectsInvalid(t *testing.T) {
	f := newFixture(t)

	if id := f.store.AddMarker(model.Position{Lat: 91, Lng: 0}, "bad lat", nil); id != "" {
		t.Error("expected rejection for out-of-range position")
	}
	if id := f.store.AddMarker(seoul(), "", nil); id != "" {
		t.Error("expected rejection for empty title")
	}

	if len(f.store.Markers()) != 0 {
		t.Error("rejected adds must not mutate the collection")
	}
	if len(*f.states) != 0 {
		t.Error("rejected adds must not broadcast")
	}
	if f.persister.count() != 0 {
		t.Error("rejected adds must not persist")
	}
}

func TestAddMarker_CollisionGetsCounterSuffix(t *testing.T) {
	f := newFixture(t)

	first := f.store.AddMarker(seoul(), "one", nil)
	second := f.store.AddMarker(seoul(), "two", nil)
	third := f.store.AddMarker(seoul(), "three", nil)

	if first == second || second == third {
		t.Fatal("ids must be unique among live markers")
	}
	if second != first+"-1" || third != first+"-2" {
		t.Errorf("expected counter suffixes, got %s, %s", second, third)
	}
}

func TestDeleteMarker_Idempotent(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddMarker(seoul(), "Seoul", nil)

	f.store.DeleteMarker(id)
	f.store.DeleteMarker(id) // second delete is a no-op

	if len(f.store.Markers()) != 0 {
		t.Error("marker should be gone")
	}
	// add + 2 deletes all broadcast
	if len(*f.states) != 3 {
		t.Errorf("expected 3 state broadcasts, got %d", len(*f.states))
	}
}

func TestUpdateTitle(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddMarker(seoul(), "Old", nil)

	f.store.UpdateTitle(id, "New")
	f.store.UpdateTitle(id, "")        // rejected
	f.store.UpdateTitle("ghost", "No") // rejected

	if got := f.store.Markers()[0].Title; got != "New" {
		t.Errorf("expected title New, got %s", got)
	}
}

func TestUpdateMemo_SetAndClear(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddMarker(seoul(), "Seoul", nil)

	memo := ""
	f.store.UpdateMemo(id, &memo)

	m := f.store.Markers()[0]
	if m.Memo == nil || *m.Memo != "" {
		t.Error("empty-string memo is a present memo")
	}

	f.store.UpdateMemo(id, nil)
	if f.store.Markers()[0].Memo != nil {
		t.Error("nil memo should clear")
	}
}

func TestUpdateCategories_RejectsEmpty(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddMarker(seoul(), "Seoul", []model.Category{model.CategoryMemory})

	f.store.UpdateCategories(id, nil)                       // rejected
	f.store.UpdateCategories(id, []model.Category{"bogus"}) // rejected after dedup

	if got := f.store.Markers()[0].Categories[0]; got != model.CategoryMemory {
		t.Errorf("categories must be unchanged, got %s", got)
	}

	f.store.UpdateCategories(id, []model.Category{model.CategoryWinter})
	if got := f.store.Markers()[0].Categories[0]; got != model.CategoryWinter {
		t.Errorf("expected winter, got %s", got)
	}
}

func TestUpdatePosition_KeepsID(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddMarker(seoul(), "Seoul", nil)

	f.store.UpdatePosition(id, busan())

	m := f.store.Markers()[0]
	if m.ID != id {
		t.Error("moving a marker must not change its id")
	}
	if m.Position != busan() {
		t.Errorf("unexpected position: %+v", m.Position)
	}

	f.store.UpdatePosition(id, model.Position{Lat: 0, Lng: 181})
	if f.store.Markers()[0].Position != busan() {
		t.Error("invalid move must be rejected")
	}
}

func TestToggleFilter_ORSemantics(t *testing.T) {
	f := newFixture(t)
	f.store.AddMarker(seoul(), "multi", []model.Category{model.CategoryMemory, model.CategorySpring})
	f.store.AddMarker(busan(), "single", []model.Category{model.CategoryMemory})

	f.store.ToggleFilter(model.CategoryMemory)

	visible := f.store.VisibleMarkers()
	// The multi-tag marker stays visible through its spring tag.
	if len(visible) != 1 {
		t.Fatalf("expected 1 visible marker, got %d", len(visible))
	}
	if visible[0].Title != "multi" {
		t.Errorf("expected the multi-tag marker, got %s", visible[0].Title)
	}

	f.store.ToggleFilter(model.CategorySpring)
	if len(f.store.VisibleMarkers()) != 0 {
		t.Error("expected no visible markers with both tags disabled")
	}

	f.store.ToggleFilter(model.CategoryMemory)
	if len(f.store.VisibleMarkers()) != 2 {
		t.Error("re-enabling memory should restore both markers")
	}
}

func TestToggleFilter_NeverPersisted(t *testing.T) {
	f := newFixture(t)
	f.store.AddMarker(seoul(), "Seoul", nil)
	before := f.persister.count()

	f.store.ToggleFilter(model.CategoryWishlist)

	if f.persister.count() != before {
		t.Error("filter toggles must not queue snapshots")
	}
	if len(*f.states) != 2 {
		t.Errorf("toggle must still broadcast, got %d states", len(*f.states))
	}
}

func TestToggleFilter_UnknownCategory(t *testing.T) {
	f := newFixture(t)

	f.store.ToggleFilter("bogus")

	if len(*f.states) != 0 {
		t.Error("unknown category toggle must be a silent no-op")
	}
	filters := f.store.Filters()
	if len(filters) != len(model.AllCategories) {
		t.Error("filter map must stay total over the enum")
	}
}

func TestMutationsPersistSnapshots(t *testing.T) {
	f := newFixture(t)

	id := f.store.AddMarker(seoul(), "Seoul", nil)
	f.store.UpdateTitle(id, "Renamed")
	f.store.DeleteMarker(id)

	if f.persister.count() != 3 {
		t.Fatalf("expected 3 snapshots, got %d", f.persister.count())
	}
	if len(f.persister.last()) != 0 {
		t.Error("final snapshot should be empty after delete")
	}
}

func TestStateBroadcastCarriesCopies(t *testing.T) {
	f := newFixture(t)
	f.store.AddMarker(seoul(), "Seoul", nil)

	state := (*f.states)[0]
	state.Markers[0].Title = "tampered"
	state.Filters[model.CategoryMemory] = false

	if f.store.Markers()[0].Title != "Seoul" {
		t.Error("broadcast leaked the internal marker slice")
	}
	if !f.store.Filters()[model.CategoryMemory] {
		t.Error("broadcast leaked the internal filter map")
	}
}

func TestBusEvents_DriveMutations(t *testing.T) {
	f := newFixture(t)

	f.bus.Publish(event.AddMarker{
		Position:   seoul(),
		Title:      "From search",
		Categories: []model.Category{model.CategoryAutumn},
	})

	markers := f.store.Markers()
	if len(markers) != 1 || markers[0].Title != "From search" {
		t.Fatalf("add-marker event not applied: %+v", markers)
	}
	id := markers[0].ID

	newTitle := "Edited"
	memo := "note"
	f.bus.Publish(event.UpdateMarker{ID: id, Title: &newTitle, Memo: &memo})

	m := f.store.Markers()[0]
	if m.Title != "Edited" || m.Memo == nil || *m.Memo != "note" {
		t.Errorf("update-marker event not applied: %+v", m)
	}

	f.bus.Publish(event.ToggleFilter{Category: model.CategoryAutumn})
	if len(f.store.VisibleMarkers()) != 0 {
		t.Error("toggle-filter event not applied")
	}

	f.bus.Publish(event.RemoveMarker{ID: id})
	if len(f.store.Markers()) != 0 {
		t.Error("remove-marker event not applied")
	}
}

func TestUpdateEvent_AtomicRejection(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddMarker(seoul(), "Seoul", nil)

	newTitle := "Should not stick"
	bad := model.Position{Lat: 200, Lng: 0}
	f.bus.Publish(event.UpdateMarker{ID: id, Title: &newTitle, Position: &bad})

	m := f.store.Markers()[0]
	if m.Title != "Seoul" {
		t.Error("a partially invalid update must apply nothing")
	}
	if m.Position != seoul() {
		t.Error("invalid position must not apply")
	}
}

func TestRequestState_Rebroadcasts(t *testing.T) {
	f := newFixture(t)
	f.store.AddMarker(seoul(), "Seoul", nil)
	before := len(*f.states)

	f.bus.Publish(event.RequestState{})

	if len(*f.states) != before+1 {
		t.Error("request-state should trigger one broadcast")
	}
	latest := (*f.states)[len(*f.states)-1]
	if len(latest.Markers) != 1 {
		t.Error("broadcast state should carry the collection")
	}
}

func TestInit_LoadsSnapshot(t *testing.T) {
	backend := memory.New()
	backend.Save([]model.Marker{
		{
			ID:         "a",
			Position:   seoul(),
			Title:      "Seoul",
			Categories: []model.Category{model.CategoryMemory},
		},
	})

	s := New(Dependencies{
		Backend:    backend,
		LogManager: logging.NewSlogManager(),
	})
	if err := s.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if len(s.Markers()) != 1 {
		t.Errorf("expected loaded marker, got %d", len(s.Markers()))
	}
	filters := s.Filters()
	for _, c := range model.AllCategories {
		if !filters[c] {
			t.Errorf("filters must reset to all-visible, %s is off", c)
		}
	}
}

// failingBackend errors on Load.
type failingBackend struct {
	*memory.Backend
}

func (failingBackend) Load() ([]model.Marker, error) {
	return nil, errors.New("corrupt snapshot")
}

func TestInit_DiscardsUnreadableSnapshot(t *testing.T) {
	s := New(Dependencies{
		Backend:    failingBackend{Backend: memory.New()},
		LogManager: logging.NewSlogManager(),
	})

	if err := s.Init(); err != nil {
		t.Fatalf("load failure must not be fatal: %v", err)
	}
	if len(s.Markers()) != 0 {
		t.Error("store must start empty after a failed load")
	}
}

func TestInit_DiscardsSnapshotWithInvalidRecord(t *testing.T) {
	backend := memory.New()
	backend.Save([]model.Marker{
		{ID: "good", Position: seoul(), Title: "ok", Categories: []model.Category{model.CategoryMemory}},
		{ID: "bad", Position: model.Position{Lat: 999, Lng: 0}, Title: "broken", Categories: []model.Category{model.CategoryMemory}},
	})

	s := New(Dependencies{
		Backend:    backend,
		LogManager: logging.NewSlogManager(),
	})
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	if len(s.Markers()) != 0 {
		t.Error("one invalid record must discard the whole snapshot")
	}
}

func TestInit_PreservesSnapshotOrder(t *testing.T) {
	backend := memory.New()
	backend.Save([]model.Marker{
		{ID: "z", Position: seoul(), Title: "first", Categories: []model.Category{model.CategoryMemory}},
		{ID: "a", Position: busan(), Title: "second", Categories: []model.Category{model.CategoryWinter}},
	})

	s := New(Dependencies{Backend: backend, LogManager: logging.NewSlogManager()})
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	markers := s.Markers()
	if markers[0].ID != "z" || markers[1].ID != "a" {
		t.Error("load must preserve saved order")
	}
}

func TestCommit_SnapshotAndBroadcastAreIndependent(t *testing.T) {
	f := newFixture(t)

	f.store.AddMarker(seoul(), "Seoul Tower", nil)

	state := (*f.states)[len(*f.states)-1]
	state.Markers[0].Title = "scribbled"
	state.Markers[0].Categories[0] = model.CategoryWinter

	persisted := f.persister.last()
	if persisted[0].Title != "Seoul Tower" {
		t.Errorf("persisted snapshot shares memory with the broadcast: %s", persisted[0].Title)
	}
	if persisted[0].Categories[0] != model.DefaultCategory {
		t.Errorf("persisted categories share memory with the broadcast: %s", persisted[0].Categories[0])
	}
	if f.store.Markers()[0].Title != "Seoul Tower" {
		t.Error("mutating a broadcast payload must not reach the live collection")
	}
}
