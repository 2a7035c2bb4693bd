// Package surface holds the state machines for the marker detail surfaces:
// the detail popup and the context menu. Each is either closed or open on
// exactly one marker; opening replaces any open instance of the same type,
// and a surface force-closes when its marker disappears from a state
// broadcast. Surfaces emit edits over the bus and never touch markers
// directly.
package surface

import (
	"fmt"
	"sync"

	"github.com/memomap/memomap/internal/bus"
	"github.com/memomap/memomap/internal/event"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
)

// Reader is the store's direct read side used to resolve a clicked marker.
type Reader interface {
	Marker(id string) (model.Marker, bool)
}

// View is the external rendering boundary for one surface type.
type View interface {
	Show(m model.Marker)
	Hide()
}

// Dependencies holds all dependencies for a surface.
type Dependencies struct {
	Bus        *bus.Bus
	Reader     Reader
	View       View
	LogManager *logging.SlogManager
}

// state is the shared closed/open-on-marker machine.
type state struct {
	deps Dependencies

	mu     sync.Mutex
	openID string
}

// open shows the surface for a marker, replacing any open instance.
func (s *state) open(id string) {
	m, ok := s.deps.Reader.Marker(id)
	if !ok {
		s.deps.LogManager.Logger().Debug("Ignoring open for unknown marker", "id", id)
		return
	}

	s.mu.Lock()
	s.openID = id
	s.mu.Unlock()

	s.deps.View.Show(m)
}

// close hides the surface if open.
func (s *state) close() {
	s.mu.Lock()
	wasOpen := s.openID != ""
	s.openID = ""
	s.mu.Unlock()

	if wasOpen {
		s.deps.View.Hide()
	}
}

// OpenID returns the id of the shown marker, or "" when closed.
func (s *state) OpenID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

// sync reconciles the surface against a state broadcast: re-render while the
// marker lives, force-close once it is gone.
func (s *state) sync(broadcast event.State) {
	s.mu.Lock()
	id := s.openID
	s.mu.Unlock()
	if id == "" {
		return
	}

	for _, m := range broadcast.Markers {
		if m.ID == id {
			s.deps.View.Show(m)
			return
		}
	}
	s.close()
}

// Popup is the marker detail surface. It opens on a pin click and stays open
// across edits, re-rendering from every state broadcast.
type Popup struct {
	state
}

// NewPopup creates the detail popup.
func NewPopup(deps Dependencies) *Popup {
	return &Popup{state{deps: deps}}
}

// RegisterHandlers subscribes the popup to clicks and state broadcasts.
func (p *Popup) RegisterHandlers() {
	p.deps.Bus.Subscribe(event.TopicMarkerClick, p.handleClick)
	p.deps.Bus.Subscribe(event.TopicState, p.handleState)
}

func (p *Popup) handleClick(e event.Event) error {
	click, ok := e.(event.MarkerClick)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	p.open(click.ID)
	return nil
}

func (p *Popup) handleState(e event.Event) error {
	broadcast, ok := e.(event.State)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	p.sync(broadcast)
	return nil
}

// Close dismisses the popup.
func (p *Popup) Close() {
	p.close()
}

// EditTitle emits a rename for the shown marker. The popup stays open; the
// resulting broadcast re-renders it. A rejected edit changes nothing and no
// error comes back.
func (p *Popup) EditTitle(title string) {
	id := p.OpenID()
	if id == "" {
		return
	}
	p.deps.Bus.Publish(event.UpdateMarker{ID: id, Title: &title})
}

// EditMemo emits a memo edit for the shown marker.
func (p *Popup) EditMemo(memo string) {
	id := p.OpenID()
	if id == "" {
		return
	}
	p.deps.Bus.Publish(event.UpdateMarker{ID: id, Memo: &memo})
}

// Delete emits a removal for the shown marker. The broadcast that follows
// closes the popup because the marker is gone.
func (p *Popup) Delete() {
	id := p.OpenID()
	if id == "" {
		return
	}
	p.deps.Bus.Publish(event.RemoveMarker{ID: id})
}

// ContextMenu is the right-click surface. Unlike the popup it closes itself
// after emitting an edit.
type ContextMenu struct {
	state
}

// NewContextMenu creates the context menu.
func NewContextMenu(deps Dependencies) *ContextMenu {
	return &ContextMenu{state{deps: deps}}
}

// RegisterHandlers subscribes the menu to right clicks and state broadcasts.
func (c *ContextMenu) RegisterHandlers() {
	c.deps.Bus.Subscribe(event.TopicMarkerRightClick, c.handleRightClick)
	c.deps.Bus.Subscribe(event.TopicState, c.handleState)
}

func (c *ContextMenu) handleRightClick(e event.Event) error {
	click, ok := e.(event.MarkerRightClick)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	c.open(click.ID)
	return nil
}

func (c *ContextMenu) handleState(e event.Event) error {
	broadcast, ok := e.(event.State)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e)
	}
	c.sync(broadcast)
	return nil
}

// Close dismisses the menu.
func (c *ContextMenu) Close() {
	c.close()
}

// SetCategories emits a retag for the shown marker and closes the menu.
func (c *ContextMenu) SetCategories(categories []model.Category) {
	id := c.OpenID()
	if id == "" {
		return
	}
	c.deps.Bus.Publish(event.UpdateMarker{ID: id, Categories: categories})
	c.close()
}

// Delete emits a removal for the shown marker and closes the menu.
func (c *ContextMenu) Delete() {
	id := c.OpenID()
	if id == "" {
		return
	}
	c.deps.Bus.Publish(event.RemoveMarker{ID: id})
	c.close()
}
