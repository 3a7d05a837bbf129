package markup

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/agiangrant/gallery/media"
)

// Render writes items as gallery markup. Parse reads the output back into
// equal items, apart from Index and Loaded, provided FullRef is set.
func Render(w io.Writer, items []media.Item, opts Options) error {
	opts = opts.withDefaults()
	for _, it := range items {
		n, err := itemNode(it, opts)
		if err != nil {
			return fmt.Errorf("item %d: %w", it.Index, err)
		}
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("render item %d: %w", it.Index, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func itemNode(it media.Item, opts Options) (*html.Node, error) {
	class := opts.ItemClass
	if it.IsVideo() {
		class += " " + opts.VideoClass
	}
	div := element(atom.Div, "class", class)

	if it.IsVideo() {
		setAttr(div, "data-video", "true")
		if it.VideoRef != "" {
			setAttr(div, "data-video-src", it.VideoRef)
		}
	}
	if it.FullRef != "" && it.FullRef != it.ThumbnailRef {
		setAttr(div, "data-full-src", it.FullRef)
	}
	if it.Title != "" {
		setAttr(div, "data-title", it.Title)
	}
	if !it.Exif.IsZero() {
		raw, err := EncodeExif(it.Exif)
		if err != nil {
			return nil, err
		}
		setAttr(div, "data-exif", raw)
	}
	if it.Geo != nil {
		setAttr(div, "data-lat", strconv.FormatFloat(it.Geo.Lat, 'f', -1, 64))
		setAttr(div, "data-lng", strconv.FormatFloat(it.Geo.Lng, 'f', -1, 64))
	}
	if it.Width > 0 && it.Height > 0 {
		setAttr(div, "data-width", strconv.Itoa(it.Width))
		setAttr(div, "data-height", strconv.Itoa(it.Height))
	}

	if it.ThumbnailRef != "" {
		div.AppendChild(element(atom.Img, "src", it.ThumbnailRef, "alt", it.Title, "loading", "lazy"))
	}
	if it.Title != "" {
		title := element(atom.Div, "class", "photo-title")
		title.AppendChild(&html.Node{Type: html.TextNode, Data: it.Title})
		div.AppendChild(title)
	}
	return div, nil
}

func element(a atom.Atom, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(kv); i += 2 {
		setAttr(n, kv[i], kv[i+1])
	}
	return n
}

func setAttr(n *html.Node, key, val string) {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
