// Package mapsync keeps map markers in step with the geotagged items of the
// collection and opens the lightbox when a marker is clicked.
package mapsync

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/agiangrant/gallery/media"
)

// DefaultFocusZoom is the zoom level Focus uses.
const DefaultFocusZoom = 15

// ErrNotBound is returned by operations that need the map before Bind.
var ErrNotBound = errors.New("mapsync: map not created")

// ErrNoLocation is returned by Focus for an item without coordinates.
var ErrNoLocation = errors.New("mapsync: item has no location")

// Provider is the map library.
type Provider interface {
	CreateMap(containerID string) (Map, error)
}

// Map is a created map. index is the collection index of the item the
// marker stands for. onClick may be called from any goroutine; Sync moves
// the activation onto the UI loop when it has a Dispatcher.
type Map interface {
	AddMarker(index int, lat, lng float64, iconRef string, onClick func())
	FitToMarkers()
}

// Viewer is implemented by maps that can be centred programmatically.
type Viewer interface {
	SetView(lat, lng float64, zoom int)
}

// Remover is implemented by maps that hold resources until removed.
type Remover interface {
	Remove()
}

// Opener shows an item by collection index. *lightbox.Controller
// implements it.
type Opener interface {
	Open(index int) error
}

// Dispatcher posts a function onto the UI loop.
type Dispatcher interface {
	Post(fn func())
}

// Option configures a Sync.
type Option func(*Sync)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Sync) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDispatcher posts marker activations through disp. Without one the
// map provider must call marker callbacks on the UI loop itself.
func WithDispatcher(disp Dispatcher) Option {
	return func(s *Sync) { s.disp = disp }
}

// WithFocusZoom sets the zoom level used by Focus.
func WithFocusZoom(zoom int) Option {
	return func(s *Sync) {
		if zoom > 0 {
			s.focusZoom = zoom
		}
	}
}

// Sync places one marker per geotagged item. It is owned by the UI loop.
type Sync struct {
	provider    Provider
	containerID string
	opener      Opener
	disp        Dispatcher
	log         *zap.Logger
	focusZoom   int

	m      Map
	marked map[int]bool
	geo    map[int]media.Geo
	clicks int
}

// New creates a map sync. The map itself is created by Bind.
func New(provider Provider, containerID string, opener Opener, opts ...Option) *Sync {
	s := &Sync{
		provider:    provider,
		containerID: containerID,
		opener:      opener,
		log:         zap.NewNop(),
		focusZoom:   DefaultFocusZoom,
		marked:      make(map[int]bool),
		geo:         make(map[int]media.Geo),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("map")
	return s
}

// Bind creates the map, adds a marker for every geotagged item and fits the
// view to them when there is at least one.
func (s *Sync) Bind(items []media.Item) error {
	if s.m != nil {
		s.ItemsAppended(items)
		return nil
	}
	m, err := s.provider.CreateMap(s.containerID)
	if err != nil {
		return fmt.Errorf("create map in %q: %w", s.containerID, err)
	}
	s.m = m

	if s.addMarkers(items) > 0 {
		m.FitToMarkers()
	}
	s.log.Debug("map bound", zap.Int("markers", len(s.marked)))
	return nil
}

// ItemsAppended adds markers for newly appended geotagged items. The view is
// left where the user put it.
func (s *Sync) ItemsAppended(items []media.Item) {
	if s.m == nil {
		return
	}
	if n := s.addMarkers(items); n > 0 {
		s.log.Debug("markers added", zap.Int("added", n), zap.Int("markers", len(s.marked)))
	}
}

// Focus centres the map on the item at index.
func (s *Sync) Focus(index int) error {
	if s.m == nil {
		return ErrNotBound
	}
	g, ok := s.geo[index]
	if !ok {
		return fmt.Errorf("focus item %d: %w", index, ErrNoLocation)
	}
	if v, ok := s.m.(Viewer); ok {
		v.SetView(g.Lat, g.Lng, s.focusZoom)
	}
	return nil
}

// Markers returns the number of markers placed.
func (s *Sync) Markers() int { return len(s.marked) }

// Clicks returns the number of marker activations handled.
func (s *Sync) Clicks() int { return s.clicks }

// Close removes the map.
func (s *Sync) Close() {
	if r, ok := s.m.(Remover); ok {
		r.Remove()
	}
	s.m = nil
	s.marked = make(map[int]bool)
	s.geo = make(map[int]media.Geo)
}

func (s *Sync) addMarkers(items []media.Item) int {
	added := 0
	for _, it := range items {
		if it.Geo == nil || s.marked[it.Index] {
			continue
		}
		// The collection index, not the position among geotagged items.
		index := it.Index
		s.marked[index] = true
		s.geo[index] = *it.Geo
		s.m.AddMarker(index, it.Geo.Lat, it.Geo.Lng, it.ThumbnailRef, func() { s.activate(index) })
		added++
	}
	return added
}

// activate runs on the provider's goroutine.
func (s *Sync) activate(index int) {
	if s.disp == nil {
		s.open(index)
		return
	}
	s.disp.Post(func() { s.open(index) })
}

func (s *Sync) open(index int) {
	s.clicks++
	if err := s.opener.Open(index); err != nil {
		s.log.Warn("marker open failed", zap.Int("index", index), zap.Error(err))
	}
}
