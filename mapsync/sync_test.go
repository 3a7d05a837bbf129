package mapsync

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/agiangrant/gallery/internal/looptest"
	"github.com/agiangrant/gallery/media"
)

type recordingOpener struct {
	opened []int
	err    error
}

func (o *recordingOpener) Open(index int) error {
	o.opened = append(o.opened, index)
	return o.err
}

// tenItems geotags indices 1, 4, 5 and 7.
func tenItems() *media.Collection {
	items := make([]media.Item, 10)
	for _, i := range []int{1, 4, 5, 7} {
		items[i].Geo = &media.Geo{Lat: 50 + float64(i), Lng: 10 + float64(i)}
		items[i].ThumbnailRef = "thumb.jpg"
	}
	return media.NewCollection(items...)
}

func TestMarkerClickOpensOriginalIndex(t *testing.T) {
	items := tenItems()
	provider := NewGeoJSON()
	opener := &recordingOpener{}
	s := New(provider, "map", opener, WithLogger(zaptest.NewLogger(t)))

	if err := s.Bind(items.Items()); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	m := provider.Map("map")
	if got := len(m.Markers()); got != 4 {
		t.Fatalf("markers = %d, want 4", got)
	}

	// The fourth marker belongs to collection index 7, not 3.
	if err := m.Click(3); err != nil {
		t.Fatal(err)
	}
	if len(opener.opened) != 1 || opener.opened[0] != 7 {
		t.Errorf("opened = %v, want [7]", opener.opened)
	}

	want := []int{1, 4, 5, 7}
	for n, idx := range want {
		opener.opened = nil
		if err := m.Click(n); err != nil {
			t.Fatal(err)
		}
		if opener.opened[0] != idx {
			t.Errorf("marker %d opened %d, want %d", n, opener.opened[0], idx)
		}
	}
}

func TestMarkerClickIsPostedToDispatcher(t *testing.T) {
	provider := NewGeoJSON()
	opener := &recordingOpener{}
	q := looptest.NewQueue()
	s := New(provider, "map", opener, WithDispatcher(q), WithLogger(zaptest.NewLogger(t)))
	if err := s.Bind(tenItems().Items()); err != nil {
		t.Fatal(err)
	}

	// Clicks arrive on the provider's goroutine.
	done := make(chan error, 1)
	go func() { done <- provider.Map("map").Click(2) }()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if len(opener.opened) != 0 || s.Clicks() != 0 {
		t.Fatalf("opened %v before the loop ran", opener.opened)
	}
	if n := q.RunPending(); n != 1 {
		t.Errorf("RunPending() = %d, want 1", n)
	}
	if len(opener.opened) != 1 || opener.opened[0] != 5 {
		t.Errorf("opened = %v, want [5]", opener.opened)
	}
	if s.Clicks() != 1 {
		t.Errorf("Clicks() = %d, want 1", s.Clicks())
	}
}

func TestMarkersCarryCollectionIndex(t *testing.T) {
	provider := NewGeoJSON()
	s := New(provider, "map", &recordingOpener{})
	if err := s.Bind(tenItems().Items()); err != nil {
		t.Fatal(err)
	}
	markers := provider.Map("map").Markers()
	want := []int{1, 4, 5, 7}
	if len(markers) != len(want) {
		t.Fatalf("markers = %d, want %d", len(markers), len(want))
	}
	for n, idx := range want {
		if markers[n].Index != idx {
			t.Errorf("marker %d index = %d, want %d", n, markers[n].Index, idx)
		}
	}
}

func TestBindFitsOnceAndAppendDoesNotRefit(t *testing.T) {
	items := tenItems()
	provider := NewGeoJSON()
	s := New(provider, "map", &recordingOpener{})

	if err := s.Bind(items.Items()); err != nil {
		t.Fatal(err)
	}
	m := provider.Map("map")
	if m.Fits() != 1 {
		t.Errorf("Fits() = %d, want 1", m.Fits())
	}

	added := items.Append([]media.Item{
		{Geo: &media.Geo{Lat: 1, Lng: 2}},
		{},
	})
	s.ItemsAppended(items.Slice(added))
	s.ItemsAppended(items.Slice(added)) // duplicate notification

	if s.Markers() != 5 || len(m.Markers()) != 5 {
		t.Errorf("markers = %d/%d, want 5", s.Markers(), len(m.Markers()))
	}
	if m.Fits() != 1 {
		t.Errorf("append refitted the map: Fits() = %d", m.Fits())
	}
}

func TestBindWithoutGeotaggedItems(t *testing.T) {
	provider := NewGeoJSON()
	s := New(provider, "map", &recordingOpener{})
	if err := s.Bind(make([]media.Item, 3)); err != nil {
		t.Fatal(err)
	}
	if m := provider.Map("map"); m.Fits() != 0 || len(m.Markers()) != 0 {
		t.Errorf("empty bind: fits=%d markers=%d", m.Fits(), len(m.Markers()))
	}
}

func TestBindErrors(t *testing.T) {
	provider := NewGeoJSON()
	if err := New(provider, "", &recordingOpener{}).Bind(nil); err == nil {
		t.Error("Bind with empty container id succeeded")
	}

	first := New(provider, "map", &recordingOpener{})
	if err := first.Bind(nil); err != nil {
		t.Fatal(err)
	}
	if err := New(provider, "map", &recordingOpener{}).Bind(nil); err == nil {
		t.Error("second map in the same container succeeded")
	}

	first.Close()
	if err := New(provider, "map", &recordingOpener{}).Bind(nil); err != nil {
		t.Errorf("Bind after Close error = %v", err)
	}
}

func TestItemsAppendedBeforeBindIsIgnored(t *testing.T) {
	provider := NewGeoJSON()
	s := New(provider, "map", &recordingOpener{})
	s.ItemsAppended(tenItems().Items())
	if s.Markers() != 0 {
		t.Errorf("Markers() = %d before Bind", s.Markers())
	}
}

func TestOpenFailureIsCounted(t *testing.T) {
	provider := NewGeoJSON()
	opener := &recordingOpener{err: media.ErrIndexOutOfRange}
	s := New(provider, "map", opener, WithLogger(zaptest.NewLogger(t)))
	if err := s.Bind(tenItems().Items()); err != nil {
		t.Fatal(err)
	}
	if err := provider.Map("map").Click(0); err != nil {
		t.Fatal(err)
	}
	if s.Clicks() != 1 {
		t.Errorf("Clicks() = %d", s.Clicks())
	}
	if err := provider.Map("map").Click(9); err == nil {
		t.Error("Click on a missing marker succeeded")
	}
}

func TestFocus(t *testing.T) {
	provider := NewGeoJSON()
	s := New(provider, "map", &recordingOpener{}, WithFocusZoom(12))

	if err := s.Focus(4); !errors.Is(err, ErrNotBound) {
		t.Errorf("Focus before Bind error = %v", err)
	}
	if err := s.Bind(tenItems().Items()); err != nil {
		t.Fatal(err)
	}
	if err := s.Focus(0); !errors.Is(err, ErrNoLocation) {
		t.Errorf("Focus on untagged item error = %v", err)
	}
	if err := s.Focus(4); err != nil {
		t.Fatal(err)
	}
	v, ok := provider.Map("map").View()
	if !ok || v.Lat != 54 || v.Lng != 14 || v.Zoom != 12 {
		t.Errorf("View() = %+v, %v", v, ok)
	}
}

func TestGeoJSONExport(t *testing.T) {
	provider := NewGeoJSON()
	s := New(provider, "map", &recordingOpener{})
	items := media.NewCollection(
		media.Item{Geo: &media.Geo{Lat: 10, Lng: 20}, ThumbnailRef: "a.jpg"},
		media.Item{},
		media.Item{Geo: &media.Geo{Lat: 20, Lng: 40}},
	)
	if err := s.Bind(items.Items()); err != nil {
		t.Fatal(err)
	}

	m := provider.Map("map")
	b, ok := m.Bounds()
	if !ok || b.South != 9 || b.North != 21 || b.West != 18 || b.East != 42 {
		t.Errorf("Bounds() = %+v", b)
	}

	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var fc struct {
		Type     string    `json:"type"`
		BBox     []float64 `json:"bbox"`
		Features []struct {
			Geometry struct {
				Type        string     `json:"type"`
				Coordinates [2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Index int    `json:"index"`
				Icon  string `json:"icon"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 || len(fc.BBox) != 4 {
		t.Fatalf("decoded = %+v", fc)
	}
	if c := fc.Features[0].Geometry.Coordinates; c != [2]float64{20, 10} {
		t.Errorf("coordinates = %v, want [lng lat]", c)
	}
	if fc.Features[0].Properties.Icon != "a.jpg" {
		t.Errorf("icon = %q", fc.Features[0].Properties.Icon)
	}
	// The untagged item at index 1 has no feature.
	for n, want := range []int{0, 2} {
		if got := fc.Features[n].Properties.Index; got != want {
			t.Errorf("feature %d index = %d, want %d", n, got, want)
		}
	}
}
