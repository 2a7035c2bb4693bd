package renderer

import (
	"math"
	"sync"
	"testing"

	"github.com/memomap/memomap/internal/bus"
	"github.com/memomap/memomap/internal/event"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// fakeWidget records every pin set pushed to it.
type fakeWidget struct {
	mu    sync.Mutex
	calls [][]Pin
}

func (w *fakeWidget) SetPins(pins []Pin) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, pins)
}

func (w *fakeWidget) last() []Pin {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.calls) == 0 {
		return nil
	}
	return w.calls[len(w.calls)-1]
}

func newFixture(t *testing.T) (*Renderer, *bus.Bus, *fakeWidget) {
	t.Helper()

	b, err := bus.New(nopLogger{})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}

	widget := &fakeWidget{}
	r := New(Dependencies{
		Bus:        b,
		Widget:     widget,
		LogManager: logging.NewSlogManager(),
	})
	r.RegisterHandlers()

	return r, b, widget
}

func marker(id string, title string, cats ...model.Category) model.Marker {
	return model.Marker{
		ID:         id,
		Position:   model.Position{Lat: 37.5, Lng: 127.0},
		Title:      title,
		Categories: cats,
	}
}

func allVisible() model.FilterState { return model.NewFilterState() }

func TestStateBroadcast_PushesPins(t *testing.T) {
	_, b, widget := newFixture(t)

	b.Publish(event.State{
		Markers: []model.Marker{marker("a", "Seoul", model.CategoryMemory)},
		Filters: allVisible(),
	})

	pins := widget.last()
	if len(pins) != 1 {
		t.Fatalf("expected 1 pin, got %d", len(pins))
	}
	if pins[0].ID != "a" || pins[0].Title != "Seoul" {
		t.Errorf("unexpected pin: %+v", pins[0])
	}
}

func TestPins_CarryPrimaryCategoryStyling(t *testing.T) {
	_, b, widget := newFixture(t)

	b.Publish(event.State{
		Markers: []model.Marker{marker("a", "styled", model.CategorySpring, model.CategoryWinter)},
		Filters: allVisible(),
	})

	pin := widget.last()[0]
	meta := model.CategorySpring.Meta()
	if pin.Color != meta.Color || pin.Border != meta.Border || pin.Emoji != meta.Emoji {
		t.Errorf("pin styling should come from the primary category: %+v", pin)
	}
	if pin.Badge != 1 {
		t.Errorf("expected badge 1 for the extra tag, got %d", pin.Badge)
	}
}

func TestPins_FilteredMarkersExcluded(t *testing.T) {
	_, b, widget := newFixture(t)

	filters := allVisible()
	filters[model.CategoryMemory] = false

	b.Publish(event.State{
		Markers: []model.Marker{
			marker("hidden", "memory only", model.CategoryMemory),
			marker("shown", "also spring", model.CategoryMemory, model.CategorySpring),
		},
		Filters: filters,
	})

	pins := widget.last()
	if len(pins) != 1 {
		t.Fatalf("expected 1 pin, got %d", len(pins))
	}
	if pins[0].ID != "shown" {
		t.Errorf("OR semantics should keep the multi-tag marker, got %s", pins[0].ID)
	}
}

func TestPins_ProjectedCoordinates(t *testing.T) {
	_, b, widget := newFixture(t)

	m := marker("a", "origin", model.CategoryWishlist)
	m.Position = model.Position{Lat: 0, Lng: 0}

	b.Publish(event.State{Markers: []model.Marker{m}, Filters: allVisible()})

	pin := widget.last()[0]
	if math.Abs(pin.Projected.X) > 1e-6 || math.Abs(pin.Projected.Y) > 1e-6 {
		t.Errorf("origin should project to (0,0), got %+v", pin.Projected)
	}
}

func TestPins_RecomputedEveryBroadcast(t *testing.T) {
	_, b, widget := newFixture(t)

	state := event.State{
		Markers: []model.Marker{marker("a", "Seoul", model.CategoryMemory)},
		Filters: allVisible(),
	}
	b.Publish(state)
	b.Publish(event.State{Markers: nil, Filters: allVisible()})

	if len(widget.calls) != 2 {
		t.Fatalf("expected 2 pin pushes, got %d", len(widget.calls))
	}
	if len(widget.last()) != 0 {
		t.Error("empty state should clear the pins")
	}
}

func TestGestures_TranslateToEvents(t *testing.T) {
	r, b, _ := newFixture(t)

	var clicks []event.MarkerClick
	var rightClicks []event.MarkerRightClick
	var updates []event.UpdateMarker

	b.Subscribe(event.TopicMarkerClick, func(e event.Event) error {
		clicks = append(clicks, e.(event.MarkerClick))
		return nil
	})
	b.Subscribe(event.TopicMarkerRightClick, func(e event.Event) error {
		rightClicks = append(rightClicks, e.(event.MarkerRightClick))
		return nil
	})
	b.Subscribe(event.TopicUpdateMarker, func(e event.Event) error {
		updates = append(updates, e.(event.UpdateMarker))
		return nil
	})

	r.PinClicked("a")
	r.PinRightClicked("b")
	r.PinDragEnded("c", model.Position{Lat: 35, Lng: 129})

	if len(clicks) != 1 || clicks[0].ID != "a" {
		t.Error("click not translated")
	}
	if len(rightClicks) != 1 || rightClicks[0].ID != "b" {
		t.Error("right click not translated")
	}
	if len(updates) != 1 || updates[0].ID != "c" {
		t.Fatal("drag end not translated")
	}
	if updates[0].Position == nil || updates[0].Position.Lat != 35 {
		t.Error("drag end should carry the drop position")
	}
	if updates[0].Title != nil || updates[0].Categories != nil || updates[0].Memo != nil {
		t.Error("drag end must only touch the position")
	}
}
