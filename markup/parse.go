// Package markup reads gallery items out of server-rendered HTML: the full
// page at startup and the fragments returned for additional pages.
package markup

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/agiangrant/gallery/media"
)

// Options names the classes and ids that identify gallery markup.
type Options struct {
	ItemClass  string // element class marking one media item (default "photo-item")
	VideoClass string // class marking a video item (default "video-item")
	GridClass  string // grid container class carrying pagination data (default "masonry-grid")
	MapID      string // id of the map container (default "map")
}

// DefaultOptions returns the class names the gallery generator emits.
func DefaultOptions() Options {
	return Options{
		ItemClass:  "photo-item",
		VideoClass: "video-item",
		GridClass:  "masonry-grid",
		MapID:      "map",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ItemClass == "" {
		o.ItemClass = d.ItemClass
	}
	if o.VideoClass == "" {
		o.VideoClass = d.VideoClass
	}
	if o.GridClass == "" {
		o.GridClass = d.GridClass
	}
	if o.MapID == "" {
		o.MapID = d.MapID
	}
	return o
}

// Grid is the pagination data attached to the grid container.
type Grid struct {
	Found       bool
	TotalPages  int // 0 when the page does not say
	CurrentPage int
}

// Document is the parsed result of a page or fragment.
type Document struct {
	Items  []media.Item
	Grid   Grid
	HasMap bool

	// Problems lists recoverable defects, such as malformed EXIF JSON. The
	// affected items are still returned without the broken field.
	Problems []error
}

// Parse reads items from an HTML page or fragment. Item indices follow
// document order starting at zero; the collection reassigns them on append.
func Parse(r io.Reader, opts Options) (*Document, error) {
	opts = opts.withDefaults()

	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	nodes, err := htmlquery.QueryAll(root, "//*["+classPredicate(opts.ItemClass)+"]")
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	doc := &Document{Items: make([]media.Item, 0, len(nodes))}
	for i, n := range nodes {
		it, problem := itemFromNode(n, opts)
		it.Index = i
		if problem != nil {
			doc.Problems = append(doc.Problems, fmt.Errorf("item %d: %w", i, problem))
		}
		doc.Items = append(doc.Items, it)
	}

	if grid := htmlquery.FindOne(root, "//*["+classPredicate(opts.GridClass)+"]"); grid != nil {
		doc.Grid.Found = true
		doc.Grid.TotalPages = atoi(htmlquery.SelectAttr(grid, "data-total-pages"))
		doc.Grid.CurrentPage = atoi(htmlquery.SelectAttr(grid, "data-current-page"))
		if doc.Grid.CurrentPage < 1 {
			doc.Grid.CurrentPage = 1
		}
	}
	doc.HasMap = htmlquery.FindOne(root, "//*[@id="+xpathLiteral(opts.MapID)+"]") != nil

	return doc, nil
}

func itemFromNode(n *html.Node, opts Options) (media.Item, error) {
	var it media.Item

	if hasClass(n, opts.VideoClass) || attr(n, "data-video") == "true" {
		it.Kind = media.KindVideo
	}

	img := htmlquery.FindOne(n, ".//img")
	if img != nil {
		it.ThumbnailRef = firstNonEmpty(attr(img, "src"), attr(img, "data-src"))
	}

	link := htmlquery.FindOne(n, ".//a["+classPredicate("photo-link")+"]")
	it.FullRef = firstNonEmpty(
		attr(n, "data-full-src"),
		attr(link, "href"),
		attr(img, "data-full"),
		it.ThumbnailRef,
	)
	it.VideoRef = attr(n, "data-video-src")

	var titleText string
	if t := htmlquery.FindOne(n, ".//*["+classPredicate("photo-title")+"]"); t != nil {
		titleText = strings.TrimSpace(htmlquery.InnerText(t))
	}
	it.Title = firstNonEmpty(attr(n, "data-title"), titleText, attr(img, "alt"))

	var problem error
	if raw := attr(n, "data-exif"); raw != "" {
		exif, err := DecodeExif(raw)
		if err != nil {
			problem = err
		} else {
			it.Exif = exif
		}
	} else {
		it.Exif = media.Exif{
			Camera:   attr(n, "data-camera"),
			Lens:     attr(n, "data-lens"),
			DateTime: attr(n, "data-datetime"),
		}
	}

	it.Geo = parseGeo(attr(n, "data-lat"), attr(n, "data-lng"))
	it.Width = atoi(attr(n, "data-width"))
	it.Height = atoi(attr(n, "data-height"))

	return it, problem
}

// DecodeExif parses the data-exif attribute value.
func DecodeExif(raw string) (media.Exif, error) {
	var e media.Exif
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return media.Exif{}, fmt.Errorf("decode exif: %w", err)
	}
	return e, nil
}

// EncodeExif produces the data-exif attribute value for e.
func EncodeExif(e media.Exif) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode exif: %w", err)
	}
	return string(b), nil
}

func parseGeo(lat, lng string) *media.Geo {
	if lat == "" || lng == "" {
		return nil
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return nil
	}
	return media.NewGeo(la, ln)
}

// classPredicate matches elements whose class list contains class.
func classPredicate(class string) string {
	return "contains(concat(' ', normalize-space(@class), ' '), " + xpathLiteral(" "+class+" ") + ")"
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.SelectAttr(n, name))
}

func atoi(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
