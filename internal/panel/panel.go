// Package panel is the boundary to the category filter panel. It renders one
// row per category from every state broadcast and turns toggle gestures into
// bus events; the store owns the actual filter state.
package panel

import (
	"fmt"

	"github.com/memomap/memomap/internal/bus"
	"github.com/memomap/memomap/internal/event"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
)

// Item is one rendered filter row. Count is the number of live markers
// carrying the category, independent of whether the filter is enabled.
type Item struct {
	Category model.Category
	Label    string
	Emoji    string
	Color    string
	Enabled  bool
	Count    int
}

// View is the external panel surface rows are pushed to.
type View interface {
	SetItems([]Item)
}

// Dependencies holds all dependencies for the filter panel.
type Dependencies struct {
	Bus        *bus.Bus
	View       View
	LogManager *logging.SlogManager
}

// Panel recomputes its rows from every state broadcast. Rows always cover the
// full category set in display order, even when no marker carries a category.
type Panel struct {
	deps Dependencies
}

// New creates a filter panel.
func New(deps Dependencies) *Panel {
	return &Panel{deps: deps}
}

// RegisterHandlers subscribes the panel to state broadcasts.
func (p *Panel) RegisterHandlers() {
	p.deps.Bus.Subscribe(event.TopicState, p.handleState)
}

// Mount requests the current state so a freshly attached panel renders
// without waiting for the next mutation.
func (p *Panel) Mount() {
	p.deps.Bus.Publish(event.RequestState{})
}

// Toggle requests a visibility flip for one category. The store validates the
// category and re-broadcasts; the panel never flips state locally.
func (p *Panel) Toggle(c model.Category) {
	p.deps.Bus.Publish(event.ToggleFilter{Category: c})
}

func (p *Panel) handleState(e event.Event) error {
	state, ok := e.(event.State)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	p.deps.View.SetItems(p.items(state))
	return nil
}

func (p *Panel) items(state event.State) []Item {
	counts := make(map[model.Category]int, len(model.AllCategories))
	for _, m := range state.Markers {
		for _, c := range m.Categories {
			counts[c]++
		}
	}

	out := make([]Item, 0, len(model.AllCategories))
	for _, c := range model.AllCategories {
		meta := c.Meta()
		out = append(out, Item{
			Category: c,
			Label:    meta.Label,
			Emoji:    meta.Emoji,
			Color:    meta.Color,
			Enabled:  state.Filters[c],
			Count:    counts[c],
		})
	}
	return out
}
