package layout

import (
	"errors"
	"math"

	"github.com/agiangrant/gallery/media"
)

// ErrEmptySelector is returned by Masonry.Init for a blank container or item
// selector.
var ErrEmptySelector = errors.New("layout: empty selector")

// MasonryConfig configures the reference packer.
type MasonryConfig struct {
	// ColumnWidth is the width of one column in pixels (default: 300).
	ColumnWidth float64

	// Gutter is the spacing between columns and between stacked items (default: 3).
	Gutter float64

	// ContainerWidth is the available width until Resize says otherwise (default: 1200).
	ContainerWidth float64

	// FitWidth shrinks the reported width to the columns actually used.
	FitWidth bool
}

// DefaultMasonryConfig returns the generator's masonry options.
func DefaultMasonryConfig() MasonryConfig {
	return MasonryConfig{
		ColumnWidth:    300,
		Gutter:         3,
		ContainerWidth: 1200,
		FitWidth:       true,
	}
}

// Rect is a placed item.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Masonry packs items into equal-width columns, placing each item in the
// currently shortest column (leftmost on ties). It is both an Engine and the
// Handle it returns.
type Masonry struct {
	cfg   MasonryConfig
	items *media.Collection

	columns   []float64 // running height of each column
	positions []Rect
}

// NewMasonry creates a packer over items.
func NewMasonry(items *media.Collection, cfg MasonryConfig) *Masonry {
	d := DefaultMasonryConfig()
	if cfg.ColumnWidth <= 0 {
		cfg.ColumnWidth = d.ColumnWidth
	}
	if cfg.Gutter < 0 {
		cfg.Gutter = 0
	}
	if cfg.ContainerWidth <= 0 {
		cfg.ContainerWidth = d.ContainerWidth
	}
	return &Masonry{cfg: cfg, items: items}
}

// Init implements Engine.
func (m *Masonry) Init(container, itemSelector, sizingSelector string) (Handle, error) {
	if container == "" || itemSelector == "" {
		return nil, ErrEmptySelector
	}
	m.reset()
	return m, nil
}

// Layout re-packs every item from scratch.
func (m *Masonry) Layout() {
	m.reset()
	m.placeThrough(m.items.Len() - 1)
}

// Append continues packing from the current column heights. Indices at or
// before the last placed item are ignored; a gap is filled in order, so the
// result always equals a full Layout.
func (m *Masonry) Append(indices []int) {
	last := -1
	for _, i := range indices {
		if i > last {
			last = i
		}
	}
	if m.columns == nil {
		m.reset()
	}
	m.placeThrough(last)
}

// Resize implements Resizer. The new width takes effect on the next Layout.
func (m *Masonry) Resize(width float64) {
	if width > 0 {
		m.cfg.ContainerWidth = width
	}
}

// Columns returns the column count for the current container width.
func (m *Masonry) Columns() int {
	c, g := m.cfg.ColumnWidth, m.cfg.Gutter
	n := int(math.Floor((m.cfg.ContainerWidth + g) / (c + g)))
	return max(1, n)
}

// Positions returns a copy of the placed rectangles by item index.
func (m *Masonry) Positions() []Rect {
	return append([]Rect(nil), m.positions...)
}

// Height returns the height of the tallest column.
func (m *Masonry) Height() float64 {
	h := 0.0
	for _, col := range m.columns {
		h = max(h, col)
	}
	if h > 0 {
		h -= m.cfg.Gutter
	}
	return h
}

// Width returns the packed width: the used columns when FitWidth is set,
// otherwise the container width.
func (m *Masonry) Width() float64 {
	if !m.cfg.FitWidth {
		return m.cfg.ContainerWidth
	}
	n := float64(m.Columns())
	return n*m.cfg.ColumnWidth + (n-1)*m.cfg.Gutter
}

func (m *Masonry) reset() {
	m.columns = make([]float64, m.Columns())
	m.positions = m.positions[:0]
}

func (m *Masonry) placeThrough(last int) {
	if last >= m.items.Len() {
		last = m.items.Len() - 1
	}
	for i := len(m.positions); i <= last; i++ {
		it, err := m.items.Get(i)
		if err != nil {
			return
		}
		m.place(it)
	}
}

func (m *Masonry) place(it media.Item) {
	col := 0
	for i, h := range m.columns {
		if h < m.columns[col] {
			col = i
		}
	}
	c, g := m.cfg.ColumnWidth, m.cfg.Gutter
	r := Rect{
		X:      float64(col) * (c + g),
		Y:      m.columns[col],
		Width:  c,
		Height: c * it.AspectRatio(),
	}
	m.columns[col] += r.Height + g
	m.positions = append(m.positions, r)
}
