// Package scroll loads further gallery pages as the viewport nears the end
// of the document.
package scroll

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/agiangrant/gallery/media"
)

// DefaultThreshold is the distance in pixels from the document end at which
// the next page is requested.
const DefaultThreshold = 400

// Metrics is a scroll position sample.
type Metrics struct {
	ScrollTop      float64
	ViewportHeight float64
	DocumentHeight float64
}

// NearEnd reports whether the bottom of the viewport is within threshold of
// the end of the document.
func (m Metrics) NearEnd(threshold float64) bool {
	return m.ScrollTop+m.ViewportHeight >= m.DocumentHeight-threshold
}

// Fetcher returns the items of a page. An empty result means there are no
// more pages; an error is retryable.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) ([]media.Item, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, page int) ([]media.Item, error)

// FetchPage implements Fetcher.
func (f FetcherFunc) FetchPage(ctx context.Context, page int) ([]media.Item, error) {
	return f(ctx, page)
}

// Layout receives appended items. *layout.Adapter implements it.
type Layout interface {
	Append(indices []int)
	Relayout()
}

// Listener is told about items after they are in the collection and laid
// out.
type Listener interface {
	ItemsAppended(items []media.Item)
}

// Dispatcher posts a function onto the UI loop.
type Dispatcher interface {
	Post(fn func())
}

// FrameScheduler runs fn on the next frame.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// State is the pagination state. HasMore never returns to true once false.
type State struct {
	Page    int
	Loading bool
	HasMore bool
}

// Stats counts fetch outcomes.
type Stats struct {
	Fetches  int
	Failures int
	Appended int
	Dropped  int // results that arrived after Close
}

// Option configures a Loader.
type Option func(*Loader)

// WithLayout sets the layout informed of appended items.
func WithLayout(l Layout) Option {
	return func(ld *Loader) { ld.layout = l }
}

// WithListener adds a listener for appended items. Listeners run in the
// order they were added.
func WithListener(l Listener) Option {
	return func(ld *Loader) { ld.listeners = append(ld.listeners, l) }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(ld *Loader) {
		if log != nil {
			ld.log = log
		}
	}
}

// WithThreshold sets the trigger distance in pixels.
func WithThreshold(px float64) Option {
	return func(ld *Loader) {
		if px >= 0 {
			ld.threshold = px
		}
	}
}

// WithStartPage sets the page already present in the document (default 1).
func WithStartPage(page int) Option {
	return func(ld *Loader) {
		if page >= 1 {
			ld.state.Page = page
		}
	}
}

// Loader requests the next page when the viewport nears the document end
// and appends the result to the collection. At most one fetch is in flight.
// It is owned by the UI loop; only the fetch itself runs elsewhere.
type Loader struct {
	items     *media.Collection
	fetcher   Fetcher
	disp      Dispatcher
	frames    FrameScheduler
	layout    Layout
	listeners []Listener
	log       *zap.Logger
	threshold float64

	state  State
	stats  Stats
	closed bool

	ticking bool
	latest  Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLoader creates a loader positioned on page 1 with more pages assumed.
func NewLoader(items *media.Collection, fetcher Fetcher, disp Dispatcher, frames FrameScheduler, opts ...Option) *Loader {
	l := &Loader{
		items:     items,
		fetcher:   fetcher,
		disp:      disp,
		frames:    frames,
		log:       zap.NewNop(),
		threshold: DefaultThreshold,
		state:     State{Page: 1, HasMore: true},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("scroll")
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l
}

// OnScroll records a scroll sample. Samples are evaluated at most once per
// frame; the newest sample of the frame wins.
func (l *Loader) OnScroll(m Metrics) {
	l.latest = m
	if l.ticking {
		return
	}
	l.ticking = true
	l.frames.RequestFrame(func() {
		l.ticking = false
		l.Check(l.latest)
	})
}

// OnResize records a viewport change. It shares the scroll throttle.
func (l *Loader) OnResize(m Metrics) {
	l.OnScroll(m)
}

// Check starts a fetch if m is near the end. It reports whether one started.
func (l *Loader) Check(m Metrics) bool {
	if l.state.Loading || !l.state.HasMore || l.closed {
		return false
	}
	if !m.NearEnd(l.threshold) {
		return false
	}
	return l.LoadMore()
}

// LoadMore fetches the next page unless a fetch is in flight or the pages
// are exhausted. It reports whether a fetch started.
func (l *Loader) LoadMore() bool {
	if l.state.Loading || !l.state.HasMore || l.closed {
		return false
	}
	l.state.Loading = true
	l.stats.Fetches++
	page := l.state.Page + 1
	l.log.Debug("fetching page", zap.Int("page", page))

	ctx := l.ctx
	go func() {
		items, err := l.fetcher.FetchPage(ctx, page)
		l.disp.Post(func() { l.resolve(page, items, err) })
	}()
	return true
}

// Disable stops all further fetching.
func (l *Loader) Disable() {
	l.state.HasMore = false
}

// Close cancels a fetch in flight. Its result, if it still arrives, is
// dropped.
func (l *Loader) Close() {
	l.closed = true
	l.cancel()
}

// State returns the pagination state.
func (l *Loader) State() State { return l.state }

// Stats returns fetch counters.
func (l *Loader) Stats() Stats { return l.stats }

func (l *Loader) resolve(page int, fetched []media.Item, err error) {
	l.state.Loading = false

	if l.closed {
		l.stats.Dropped++
		return
	}
	if err != nil {
		l.stats.Failures++
		if !errors.Is(err, context.Canceled) {
			l.log.Warn("page fetch failed", zap.Int("page", page), zap.Error(err))
		}
		return
	}
	if len(fetched) == 0 {
		l.state.HasMore = false
		l.log.Info("no more pages", zap.Int("last_page", l.state.Page))
		return
	}

	l.state.Page = page
	indices := l.items.Append(fetched)
	l.stats.Appended += len(indices)
	if l.layout != nil {
		l.layout.Append(indices)
		l.layout.Relayout()
	}

	appended := l.items.Slice(indices)
	for _, ls := range l.listeners {
		ls.ItemsAppended(appended)
	}
	l.log.Debug("page appended",
		zap.Int("page", page),
		zap.Int("items", len(indices)),
		zap.Int("total", l.items.Len()))
}
