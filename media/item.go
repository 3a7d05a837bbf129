package media

import (
	"errors"
	"fmt"
	"math"
)

// Kind distinguishes image and video items.
type Kind uint8

const (
	KindImage Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ErrIndexOutOfRange is returned when an index does not address an item.
var ErrIndexOutOfRange = errors.New("media: index out of range")

// ErrPlaybackNotAllowed marks a play request refused by an autoplay policy.
// It is a permission gate: retrying only helps after a user gesture.
var ErrPlaybackNotAllowed = errors.New("media: playback not allowed")

// RangeError reports an index outside [0, Length).
type RangeError struct {
	Index  int
	Length int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("media: index %d out of range [0,%d)", e.Index, e.Length)
}

func (e *RangeError) Unwrap() error { return ErrIndexOutOfRange }

// Exif holds the optional camera metadata shown in the lightbox.
type Exif struct {
	Camera   string   `json:"camera,omitempty"`
	Lens     string   `json:"lens,omitempty"`
	Settings []string `json:"settings,omitempty"`
	DateTime string   `json:"datetime,omitempty"`
}

// IsZero reports whether no field is set.
func (e Exif) IsZero() bool {
	return e.Camera == "" && e.Lens == "" && len(e.Settings) == 0 && e.DateTime == ""
}

// Geo is a WGS84 coordinate.
type Geo struct {
	Lat float64
	Lng float64
}

// NewGeo returns nil unless both coordinates are finite.
func NewGeo(lat, lng float64) *Geo {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return nil
	}
	return &Geo{Lat: lat, Lng: lng}
}

// Item is a single grid entry. Items are values: the collection hands out
// copies, so an Item obtained from it never changes underneath the caller.
type Item struct {
	// Index is assigned by Collection.Append and equals the item's position.
	Index int

	Kind Kind

	ThumbnailRef string
	FullRef      string
	VideoRef     string // optional; only meaningful for KindVideo

	Title string
	Exif  Exif
	Geo   *Geo

	// Loaded is true when the asset was already complete when the item was
	// observed (served from cache).
	Loaded bool

	// Intrinsic size in pixels; zero means unknown.
	Width  int
	Height int
}

// IsVideo reports whether the item renders through the video branch.
func (it Item) IsVideo() bool { return it.Kind == KindVideo }

// PlaybackRef returns the reference a video element should load.
func (it Item) PlaybackRef() string {
	if it.VideoRef != "" {
		return it.VideoRef
	}
	return it.FullRef
}

// AspectRatio returns height/width, or 1 when the size is unknown.
func (it Item) AspectRatio() float64 {
	if it.Width <= 0 || it.Height <= 0 {
		return 1
	}
	return float64(it.Height) / float64(it.Width)
}

func (it Item) clone() Item {
	if it.Exif.Settings != nil {
		it.Exif.Settings = append([]string(nil), it.Exif.Settings...)
	}
	if it.Geo != nil {
		g := *it.Geo
		it.Geo = &g
	}
	return it
}
