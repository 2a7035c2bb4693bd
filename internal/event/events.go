package event

import "github.com/memomap/memomap/internal/model"

// Topic names. These double as the wire names of the application's
// cross-component messages, so they stay stable across releases.
const (
	TopicAddMarker        = "memomap:add-marker"
	TopicRemoveMarker     = "memomap:remove-marker"
	TopicUpdateMarker     = "memomap:update-marker"
	TopicToggleFilter     = "memomap:toggle-filter"
	TopicRequestState     = "memomap:request-state"
	TopicState            = "memomap:state"
	TopicMarkerClick      = "memomap:marker-click"
	TopicMarkerRightClick = "memomap:marker-rightclick"
)

// Event is a message carried by the bus. Topic routes it to subscribers.
type Event interface {
	Topic() string
}

// AddMarker requests registration of a new marker at a position.
// Empty Categories means "use the default category".
type AddMarker struct {
	Position   model.Position
	Title      string
	Categories []model.Category
}

func (AddMarker) Topic() string { return TopicAddMarker }

// RemoveMarker requests deletion of a marker by id.
type RemoveMarker struct {
	ID string
}

func (RemoveMarker) Topic() string { return TopicRemoveMarker }

// UpdateMarker requests a partial edit of an existing marker. Nil fields are
// left untouched; Memo set to a pointer to "" clears the memo text while
// keeping a memo present. A non-nil empty Categories slice is rejected by the
// store, so senders that do not want to change tags leave the field nil.
type UpdateMarker struct {
	ID         string
	Title      *string
	Memo       *string
	Categories []model.Category
	Position   *model.Position
}

func (UpdateMarker) Topic() string { return TopicUpdateMarker }

// ToggleFilter flips the visibility flag of one category.
type ToggleFilter struct {
	Category model.Category
}

func (ToggleFilter) Topic() string { return TopicToggleFilter }

// RequestState asks the store to re-broadcast the current state. Late
// subscribers use it to catch up, since the bus has no replay.
type RequestState struct{}

func (RequestState) Topic() string { return TopicRequestState }

// State is the store's broadcast of the full marker collection and filter
// state. Slices and maps are defensive copies owned by the receiver.
type State struct {
	Markers []model.Marker
	Filters model.FilterState
}

func (State) Topic() string { return TopicState }

// MarkerClick reports a primary click on a rendered pin.
type MarkerClick struct {
	ID string
}

func (MarkerClick) Topic() string { return TopicMarkerClick }

// MarkerRightClick reports a secondary click on a rendered pin.
type MarkerRightClick struct {
	ID string
}

func (MarkerRightClick) Topic() string { return TopicMarkerRightClick }
