package lightbox

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/agiangrant/gallery/media"
)

// DefaultSeparator joins exposure settings on one line.
const DefaultSeparator = " • "

// Media is one of the two media slots of the lightbox.
type Media struct {
	Visible bool
	Source  string
}

// Metadata is the caption shown under the media.
type Metadata struct {
	Title string
	Exif  []string
}

// View is everything a surface needs to draw the lightbox.
type View struct {
	Open  bool
	Index int
	Kind  media.Kind

	// Exactly one slot is visible while open. The hidden slot has no source.
	Image Media
	Video Media

	NavHidden    bool // fewer than two items
	ScrollLocked bool // background scrolling disabled
	Meta         Metadata
}

// MetadataFor builds the caption for it. EXIF lines come in a fixed order:
// camera, lens, settings joined by sep, date. Missing fields are skipped.
func MetadataFor(it media.Item, sep string) Metadata {
	m := Metadata{Title: it.Title}
	e := it.Exif
	if e.Camera != "" {
		m.Exif = append(m.Exif, e.Camera)
	}
	if e.Lens != "" {
		m.Exif = append(m.Exif, e.Lens)
	}
	if len(e.Settings) > 0 {
		m.Exif = append(m.Exif, strings.Join(e.Settings, sep))
	}
	if e.DateTime != "" {
		m.Exif = append(m.Exif, e.DateTime)
	}
	return m
}

// IsZero reports whether there is nothing to show.
func (m Metadata) IsZero() bool {
	return m.Title == "" && len(m.Exif) == 0
}

// HTML renders the caption as an escaped fragment: an h3 title followed by
// a div.exif-data with one span per line.
func (m Metadata) HTML() string {
	var nodes []*html.Node
	if m.Title != "" {
		h := &html.Node{Type: html.ElementNode, DataAtom: atom.H3, Data: "h3"}
		h.AppendChild(text(m.Title))
		nodes = append(nodes, h)
	}
	if len(m.Exif) > 0 {
		div := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Div,
			Data:     "div",
			Attr:     []html.Attribute{{Key: "class", Val: "exif-data"}},
		}
		for _, line := range m.Exif {
			span := &html.Node{Type: html.ElementNode, DataAtom: atom.Span, Data: "span"}
			span.AppendChild(text(line))
			div.AppendChild(span)
		}
		nodes = append(nodes, div)
	}

	var b strings.Builder
	for _, n := range nodes {
		// strings.Builder never fails a write.
		_ = html.Render(&b, n)
	}
	return b.String()
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
