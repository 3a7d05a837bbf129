package media

import (
	"errors"
	"math"
	"testing"
)

func TestCollectionAppendAssignsContiguousIndices(t *testing.T) {
	c := NewCollection(Item{Title: "a"}, Item{Title: "b"})

	got := c.Append([]Item{{Index: 42, Title: "c"}, {Index: -1, Title: "d"}})
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("Append indices = %v, want [2 3]", got)
	}
	if c.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", c.Len())
	}

	for i, it := range c.Items() {
		if it.Index != i {
			t.Errorf("item %d has Index %d", i, it.Index)
		}
	}
}

func TestCollectionAppendEmpty(t *testing.T) {
	c := NewCollection()
	if got := c.Append(nil); got != nil {
		t.Errorf("Append(nil) = %v, want nil", got)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCollectionGet(t *testing.T) {
	c := NewCollection(Item{Title: "only"})

	tests := []struct {
		name    string
		index   int
		wantErr bool
	}{
		{name: "first", index: 0},
		{name: "negative", index: -1, wantErr: true},
		{name: "past end", index: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := c.Get(tt.index)
			if tt.wantErr {
				if !errors.Is(err, ErrIndexOutOfRange) {
					t.Fatalf("Get(%d) error = %v, want ErrIndexOutOfRange", tt.index, err)
				}
				var rerr *RangeError
				if !errors.As(err, &rerr) || rerr.Index != tt.index || rerr.Length != 1 {
					t.Errorf("RangeError = %+v", rerr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get(%d) unexpected error: %v", tt.index, err)
			}
			if it.Title != "only" {
				t.Errorf("Title = %q, want %q", it.Title, "only")
			}
		})
	}
}

func TestCollectionItemsAreCopies(t *testing.T) {
	settings := []string{"f/2.8", "1/250s"}
	c := NewCollection(Item{Exif: Exif{Settings: settings}, Geo: &Geo{Lat: 1, Lng: 2}})

	settings[0] = "mutated"
	it, _ := c.Get(0)
	if it.Exif.Settings[0] != "f/2.8" {
		t.Errorf("stored settings changed through caller slice: %v", it.Exif.Settings)
	}

	it.Exif.Settings[1] = "mutated"
	it.Geo.Lat = 99
	again, _ := c.Get(0)
	if again.Exif.Settings[1] != "1/250s" || again.Geo.Lat != 1 {
		t.Errorf("stored item changed through returned copy: %+v", again)
	}
}

func TestCollectionGeotaggedKeepsOriginalIndex(t *testing.T) {
	var items []Item
	for i := 0; i < 10; i++ {
		it := Item{}
		if i == 1 || i == 4 || i == 5 || i == 7 {
			it.Geo = &Geo{Lat: float64(i), Lng: float64(i)}
		}
		items = append(items, it)
	}
	c := NewCollection(items...)

	geo := c.Geotagged()
	want := []int{1, 4, 5, 7}
	if len(geo) != len(want) {
		t.Fatalf("Geotagged() returned %d items, want %d", len(geo), len(want))
	}
	for i, it := range geo {
		if it.Index != want[i] {
			t.Errorf("geotagged[%d].Index = %d, want %d", i, it.Index, want[i])
		}
	}
}

func TestNewGeoRejectsNonFinite(t *testing.T) {
	if NewGeo(math.NaN(), 1) != nil {
		t.Error("NewGeo(NaN, 1) should be nil")
	}
	if NewGeo(1, math.Inf(1)) != nil {
		t.Error("NewGeo(1, +Inf) should be nil")
	}
	if g := NewGeo(59.3, 18.0); g == nil || g.Lat != 59.3 {
		t.Errorf("NewGeo(59.3, 18.0) = %v", g)
	}
}

func TestItemHelpers(t *testing.T) {
	v := Item{Kind: KindVideo, FullRef: "full.mp4"}
	if v.PlaybackRef() != "full.mp4" {
		t.Errorf("PlaybackRef fallback = %q", v.PlaybackRef())
	}
	v.VideoRef = "clip.mp4"
	if v.PlaybackRef() != "clip.mp4" {
		t.Errorf("PlaybackRef = %q", v.PlaybackRef())
	}
	if (Item{}).AspectRatio() != 1 {
		t.Error("unknown size should be square")
	}
	if r := (Item{Width: 400, Height: 600}).AspectRatio(); r != 1.5 {
		t.Errorf("AspectRatio = %v, want 1.5", r)
	}
	if KindVideo.String() != "video" || KindImage.String() != "image" {
		t.Error("Kind.String mismatch")
	}
}
