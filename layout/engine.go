// Package layout holds the packing contract the gallery relies on, a
// reference masonry packer, and the controllers that decide when the grid is
// re-packed (progressive reveal and resize debouncing).
package layout

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoHandle is returned by NewAdapter when the engine produced no handle.
var ErrNoHandle = errors.New("layout: engine returned no handle")

// Engine is the packing library. Init binds it to a container and returns
// the handle the adapter drives.
type Engine interface {
	Init(container, itemSelector, sizingSelector string) (Handle, error)
}

// Handle is a bound packer instance. Layout must be safe to call before any
// item has loaded and repeatedly with no accumulated side effects. Append
// informs the packer of items added after Init.
type Handle interface {
	Layout()
	Append(indices []int)
}

// Resizer is implemented by handles that need the container width pushed
// to them rather than measuring it themselves.
type Resizer interface {
	Resize(width float64)
}

// Selectors names the container and items for Engine.Init.
type Selectors struct {
	Container string
	Item      string
	Sizing    string
}

// DefaultSelectors returns the selectors of the generated gallery markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Container: ".masonry-grid",
		Item:      ".photo-item",
		Sizing:    ".photo-item",
	}
}

// AdapterStats counts calls made through the adapter.
type AdapterStats struct {
	Relayouts int
	Appends   int
	Resizes   int
}

// Adapter wraps an engine handle with the calls the rest of the gallery
// makes. It is owned by the UI loop.
type Adapter struct {
	handle Handle
	log    *zap.Logger

	pendingWidth float64
	stats        AdapterStats
}

// NewAdapter initialises engine against sel.
func NewAdapter(engine Engine, sel Selectors, log *zap.Logger) (*Adapter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	h, err := engine.Init(sel.Container, sel.Item, sel.Sizing)
	if err != nil {
		return nil, fmt.Errorf("init layout engine on %q: %w", sel.Container, err)
	}
	if h == nil {
		return nil, ErrNoHandle
	}
	return &Adapter{handle: h, log: log.Named("layout")}, nil
}

// Relayout re-packs every item. A width recorded by Resize is applied first.
func (a *Adapter) Relayout() {
	if a.pendingWidth > 0 {
		if r, ok := a.handle.(Resizer); ok {
			r.Resize(a.pendingWidth)
		}
		a.pendingWidth = 0
	}
	a.stats.Relayouts++
	a.handle.Layout()
	a.log.Debug("relayout", zap.Int("count", a.stats.Relayouts))
}

// Append tells the packer about newly inserted items. It does not re-pack
// existing items; callers follow with Relayout.
func (a *Adapter) Append(indices []int) {
	if len(indices) == 0 {
		return
	}
	a.stats.Appends++
	a.handle.Append(indices)
	a.log.Debug("append", zap.Ints("indices", indices))
}

// Resize records the container width for the next Relayout.
func (a *Adapter) Resize(width float64) {
	if width <= 0 {
		return
	}
	a.stats.Resizes++
	a.pendingWidth = width
}

// Stats returns call counters.
func (a *Adapter) Stats() AdapterStats { return a.stats }
