package gallery

import (
	"fmt"

	"github.com/agiangrant/gallery/scroll"
)

// ============================================================================
// Event Types
// ============================================================================

// EventType identifies the kind of host event.
type EventType uint8

const (
	// Pointer events
	EventMouseEnter EventType = iota + 1
	EventMouseLeave
	EventClick

	// Keyboard events
	EventKeyDown

	// Viewport events
	EventScroll
	EventResize

	// Asset events
	EventLoad
	EventLoadError
)

func (t EventType) String() string {
	switch t {
	case EventMouseEnter:
		return "mouseenter"
	case EventMouseLeave:
		return "mouseleave"
	case EventClick:
		return "click"
	case EventKeyDown:
		return "keydown"
	case EventScroll:
		return "scroll"
	case EventResize:
		return "resize"
	case EventLoad:
		return "load"
	case EventLoadError:
		return "error"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Target identifies what an event hit.
type Target uint8

const (
	TargetDocument Target = iota
	TargetItem            // a grid tile; Event.Index is set
	TargetBackdrop        // the lightbox background
	TargetClose           // the lightbox close control
	TargetPrev            // the lightbox previous control
	TargetNext            // the lightbox next control
)

// ============================================================================
// Event
// ============================================================================

// Event is a host input. Only the fields relevant to Type are read.
type Event struct {
	Type   EventType
	Target Target

	// Index of the item for TargetItem, EventLoad and EventLoadError.
	Index int

	// Key name for EventKeyDown ("Escape", "ArrowLeft", ...).
	Key string

	// Viewport sample for EventScroll and EventResize.
	Metrics scroll.Metrics

	// Container width for EventResize; zero leaves it unchanged.
	Width float64

	// Cause for EventLoadError.
	Err error
}

// MouseEnter is the pointer entering the tile at index.
func MouseEnter(index int) Event {
	return Event{Type: EventMouseEnter, Target: TargetItem, Index: index}
}

// MouseLeave is the pointer leaving the tile at index.
func MouseLeave(index int) Event {
	return Event{Type: EventMouseLeave, Target: TargetItem, Index: index}
}

// ClickItem is a click on the tile at index.
func ClickItem(index int) Event {
	return Event{Type: EventClick, Target: TargetItem, Index: index}
}

// Click is a click on a lightbox control or the page.
func Click(target Target) Event {
	return Event{Type: EventClick, Target: target}
}

// KeyDown is a key press, named as in KeyboardEvent.key.
func KeyDown(key string) Event {
	return Event{Type: EventKeyDown, Key: key}
}

// Loaded reports that the asset of the item at index finished loading.
func Loaded(index int) Event {
	return Event{Type: EventLoad, Index: index}
}

// LoadFailed reports that the asset of the item at index failed to load.
func LoadFailed(index int, err error) Event {
	return Event{Type: EventLoadError, Index: index, Err: err}
}

// Scrolled is a scroll sample.
func Scrolled(m scroll.Metrics) Event {
	return Event{Type: EventScroll, Metrics: m}
}

// Resized is a viewport change; width is the new container width.
func Resized(m scroll.Metrics, width float64) Event {
	return Event{Type: EventResize, Metrics: m, Width: width}
}
