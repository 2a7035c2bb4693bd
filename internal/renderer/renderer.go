// Package renderer is the boundary to the map widget. It turns state
// broadcasts into pin sets and widget gestures into bus events; it never
// mutates markers itself.
package renderer

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/memomap/memomap/internal/bus"
	"github.com/memomap/memomap/internal/event"
	"github.com/memomap/memomap/internal/geo"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
)

// Pin is one rendered marker. Styling comes from the primary category; the
// badge count shows how many tags the marker carries beyond the primary one.
type Pin struct {
	ID        string
	Position  model.Position
	Projected geom.XY
	Title     string
	Emoji     string
	Color     string
	Border    string
	Glyph     string
	Badge     int
}

// Widget is the external map surface pins are pushed to.
type Widget interface {
	SetPins([]Pin)
}

// Dependencies holds all dependencies for the renderer.
type Dependencies struct {
	Bus        *bus.Bus
	Widget     Widget
	LogManager *logging.SlogManager
}

// Renderer recomputes the pin set from every state broadcast. Pins are never
// cached across broadcasts; the state event is the single source of truth.
type Renderer struct {
	deps Dependencies
}

// New creates a renderer.
func New(deps Dependencies) *Renderer {
	return &Renderer{deps: deps}
}

// RegisterHandlers subscribes the renderer to state broadcasts.
func (r *Renderer) RegisterHandlers() {
	r.deps.Bus.Subscribe(event.TopicState, r.handleState)
}

func (r *Renderer) handleState(e event.Event) error {
	state, ok := e.(event.State)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	r.deps.Widget.SetPins(r.pins(state))
	return nil
}

// pins builds the pin set for the markers visible under the state's filters.
func (r *Renderer) pins(state event.State) []Pin {
	logger := r.deps.LogManager.Logger()

	out := make([]Pin, 0, len(state.Markers))
	for _, m := range state.Markers {
		if !visible(m, state.Filters) {
			continue
		}

		projected, err := geo.Project3857(m.Position)
		if err != nil {
			logger.Debug("Skipping pin with unprojectable position", "id", m.ID)
			continue
		}
		xy, _ := projected.XY()

		meta := m.Primary().Meta()
		out = append(out, Pin{
			ID:        m.ID,
			Position:  m.Position,
			Projected: xy,
			Title:     m.Title,
			Emoji:     meta.Emoji,
			Color:     meta.Color,
			Border:    meta.Border,
			Glyph:     meta.Glyph,
			Badge:     len(m.Categories) - 1,
		})
	}
	return out
}

func visible(m model.Marker, filters model.FilterState) bool {
	for _, c := range m.Categories {
		if filters[c] {
			return true
		}
	}
	return false
}

// Widget gesture callbacks. The widget adapter calls these; each translates
// straight into a bus event.

// PinClicked reports a primary click on a pin.
func (r *Renderer) PinClicked(id string) {
	r.deps.Bus.Publish(event.MarkerClick{ID: id})
}

// PinRightClicked reports a secondary click on a pin.
func (r *Renderer) PinRightClicked(id string) {
	r.deps.Bus.Publish(event.MarkerRightClick{ID: id})
}

// PinDragEnded reports a completed drag. The store validates the target
// position; an invalid drop is silently ignored there.
func (r *Renderer) PinDragEnded(id string, pos model.Position) {
	r.deps.Bus.Publish(event.UpdateMarker{ID: id, Position: &pos})
}
