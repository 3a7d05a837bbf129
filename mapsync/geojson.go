package mapsync

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
)

// boundsPadding widens fitted bounds on every side by this fraction.
const boundsPadding = 0.1

// Marker is a marker recorded by a GeoJSONMap.
type Marker struct {
	Index    int // collection index of the item
	Lat, Lng float64
	Icon     string
	onClick  func()
}

// Bounds is a lat/lng box.
type Bounds struct {
	South, West, North, East float64
}

// View is a centred view set by SetView.
type View struct {
	Lat, Lng float64
	Zoom     int
}

// GeoJSON is a headless Provider. It records markers so they can be
// exported as a GeoJSON FeatureCollection or clicked from code.
type GeoJSON struct {
	mu   sync.Mutex
	maps map[string]*GeoJSONMap
}

// NewGeoJSON creates an empty provider.
func NewGeoJSON() *GeoJSON {
	return &GeoJSON{maps: make(map[string]*GeoJSONMap)}
}

// CreateMap implements Provider. A container holds one map at a time.
func (p *GeoJSON) CreateMap(containerID string) (Map, error) {
	if containerID == "" {
		return nil, fmt.Errorf("mapsync: empty container id")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.maps[containerID]; ok && !m.isRemoved() {
		return nil, fmt.Errorf("mapsync: container %q already has a map", containerID)
	}
	m := &GeoJSONMap{ID: containerID}
	p.maps[containerID] = m
	return m, nil
}

// Map returns the map created in containerID, or nil.
func (p *GeoJSON) Map(containerID string) *GeoJSONMap {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maps[containerID]
}

// GeoJSONMap is the Map created by GeoJSON. Its methods are safe for
// concurrent use, so Click may come from any goroutine.
type GeoJSONMap struct {
	ID string

	mu      sync.Mutex
	markers []Marker
	bounds  *Bounds
	view    *View
	fits    int
	removed bool
}

// AddMarker implements Map.
func (m *GeoJSONMap) AddMarker(index int, lat, lng float64, iconRef string, onClick func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = append(m.markers, Marker{Index: index, Lat: lat, Lng: lng, Icon: iconRef, onClick: onClick})
}

// FitToMarkers implements Map. The bounds are padded by a tenth of their
// span on each side.
func (m *GeoJSONMap) FitToMarkers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.markers) == 0 {
		return
	}
	b := Bounds{South: math.Inf(1), West: math.Inf(1), North: math.Inf(-1), East: math.Inf(-1)}
	for _, mk := range m.markers {
		b.South = math.Min(b.South, mk.Lat)
		b.North = math.Max(b.North, mk.Lat)
		b.West = math.Min(b.West, mk.Lng)
		b.East = math.Max(b.East, mk.Lng)
	}
	dLat := (b.North - b.South) * boundsPadding
	dLng := (b.East - b.West) * boundsPadding
	b.South -= dLat
	b.North += dLat
	b.West -= dLng
	b.East += dLng

	m.bounds = &b
	m.fits++
}

// SetView implements Viewer.
func (m *GeoJSONMap) SetView(lat, lng float64, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = &View{Lat: lat, Lng: lng, Zoom: zoom}
}

// Remove implements Remover.
func (m *GeoJSONMap) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = nil
	m.removed = true
}

func (m *GeoJSONMap) isRemoved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removed
}

// Markers returns the recorded markers in insertion order.
func (m *GeoJSONMap) Markers() []Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Marker(nil), m.markers...)
}

// Bounds returns the last fitted bounds.
func (m *GeoJSONMap) Bounds() (Bounds, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bounds == nil {
		return Bounds{}, false
	}
	return *m.bounds, true
}

// View returns the last view set with SetView.
func (m *GeoJSONMap) View() (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.view == nil {
		return View{}, false
	}
	return *m.view, true
}

// Fits returns how many times the map was fitted to its markers.
func (m *GeoJSONMap) Fits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fits
}

// Click activates marker n as a user click would.
func (m *GeoJSONMap) Click(n int) error {
	m.mu.Lock()
	if n < 0 || n >= len(m.markers) {
		count := len(m.markers)
		m.mu.Unlock()
		return fmt.Errorf("mapsync: marker %d of %d", n, count)
	}
	fn := m.markers[n].onClick
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

type featureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox,omitempty"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Geometry   point             `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type featureProperties struct {
	Marker int    `json:"marker"`
	Index  int    `json:"index"`
	Icon   string `json:"icon,omitempty"`
}

// MarshalJSON encodes the markers as a GeoJSON FeatureCollection, with the
// fitted bounds as its bbox.
func (m *GeoJSONMap) MarshalJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(m.markers))}
	if m.bounds != nil {
		fc.BBox = []float64{m.bounds.West, m.bounds.South, m.bounds.East, m.bounds.North}
	}
	for i, mk := range m.markers {
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			// GeoJSON orders coordinates longitude first.
			Geometry:   point{Type: "Point", Coordinates: [2]float64{mk.Lng, mk.Lat}},
			Properties: featureProperties{Marker: i, Index: mk.Index, Icon: mk.Icon},
		})
	}
	return json.Marshal(fc)
}
