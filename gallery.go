// Package gallery is the client runtime of a static photo and video gallery.
// It wires the media collection to the masonry layout, progressive reveal,
// hover previews, the lightbox, infinite scroll and the map, and routes host
// events to them on a single UI loop.
package gallery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agiangrant/gallery/hover"
	"github.com/agiangrant/gallery/internal/loop"
	"github.com/agiangrant/gallery/layout"
	"github.com/agiangrant/gallery/lightbox"
	"github.com/agiangrant/gallery/mapsync"
	"github.com/agiangrant/gallery/markup"
	"github.com/agiangrant/gallery/media"
	"github.com/agiangrant/gallery/scroll"
)

// Option configures a Gallery.
type Option func(*options)

type options struct {
	engine          layout.Engine
	mapProvider     mapsync.Provider
	fetcher         scroll.Fetcher
	lightboxSurface lightbox.Surface
	lightboxPlayer  lightbox.Player
	previewSurface  hover.Surface
	previewPlayer   hover.Player
	log             *zap.Logger
	loop            *loop.Loop
}

// WithLayoutEngine replaces the built-in masonry packer.
func WithLayoutEngine(e layout.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithMapProvider enables marker sync on provider.
func WithMapProvider(p mapsync.Provider) Option {
	return func(o *options) { o.mapProvider = p }
}

// WithFetcher sets the page source for infinite scroll. Without it, a
// fetcher is built from Config.Scroll.URLTemplate when one is set.
func WithFetcher(f scroll.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithLightboxSurface sets where the lightbox is drawn.
func WithLightboxSurface(s lightbox.Surface) Option {
	return func(o *options) { o.lightboxSurface = s }
}

// WithLightboxPlayer sets the lightbox video element.
func WithLightboxPlayer(p lightbox.Player) Option {
	return func(o *options) { o.lightboxPlayer = p }
}

// WithPreviewSurface sets where hover previews are drawn.
func WithPreviewSurface(s hover.Surface) Option {
	return func(o *options) { o.previewSurface = s }
}

// WithPreviewPlayer sets the inline preview video elements.
func WithPreviewPlayer(p hover.Player) Option {
	return func(o *options) { o.previewPlayer = p }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithLoop runs the gallery on an existing loop.
func WithLoop(l *loop.Loop) Option {
	return func(o *options) { o.loop = l }
}

// Stats summarises the runtime.
type Stats struct {
	Items           int
	Pages           int
	Relayouts       int
	RevealRelayouts int
	ResizeRelayouts int
	Fetches         int
	FetchFailures   int
	Markers         int
	HasMore         bool
}

// Gallery owns every component. Construct it once; components receive
// references to each other here instead of finding one another globally.
//
// Everything except Post, Run and Loop must be called on the UI loop (or
// before Run starts it).
type Gallery struct {
	cfg  Config
	log  *zap.Logger
	loop *loop.Loop

	items    *media.Collection
	adapter  *layout.Adapter
	masonry  *layout.Masonry // nil with a custom engine
	reveal   *layout.Reveal
	preview  *hover.Preview
	lightbox *lightbox.Controller
	loader   *scroll.Loader // nil without a page source
	mapSync  *mapsync.Sync  // nil without a map

	started bool
	closed  bool
}

// New builds a gallery over items.
func New(items []media.Item, cfg Config, opts ...Option) (*Gallery, error) {
	return build(items, cfg, nil, opts)
}

// NewFromDocument builds a gallery from parsed page markup. Pagination
// starts after the document's current page, stops at its last page, and the
// map is skipped when the page has no map container.
func NewFromDocument(doc *markup.Document, cfg Config, opts ...Option) (*Gallery, error) {
	if doc == nil {
		return nil, errors.New("gallery: nil document")
	}
	if !doc.HasMap {
		cfg.Map.Enabled = false
	}
	return build(doc.Items, cfg, doc, opts)
}

func build(seed []media.Item, cfg Config, doc *markup.Document, opts []Option) (*Gallery, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gallery config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.loop == nil {
		o.loop = loop.New(loop.Config{TargetFPS: cfg.Loop.TargetFPS}, o.log)
	}

	g := &Gallery{
		cfg:   cfg,
		log:   o.log.Named("gallery"),
		loop:  o.loop,
		items: media.NewCollection(seed...),
	}

	engine := o.engine
	if engine == nil {
		g.masonry = layout.NewMasonry(g.items, layout.MasonryConfig{
			ColumnWidth:    cfg.Layout.ColumnWidth,
			Gutter:         cfg.Layout.Gutter,
			ContainerWidth: cfg.Layout.ContainerWidth,
			FitWidth:       cfg.Layout.FitWidth,
		})
		engine = g.masonry
	}
	adapter, err := layout.NewAdapter(engine, layout.Selectors{
		Container: cfg.Layout.Container,
		Item:      cfg.Layout.Item,
		Sizing:    cfg.Layout.Sizing,
	}, o.log)
	if err != nil {
		return nil, err
	}
	g.adapter = adapter

	g.reveal = layout.NewReveal(adapter, g.loop, layout.RevealConfig{
		BatchSize:   cfg.Layout.BatchSize,
		ResizeQuiet: cfg.Layout.ResizeQuiet(),
	}, o.log)
	// Seed items are observed now so load events that arrive before Start
	// are still credited.
	g.reveal.Observe(g.items.Items())

	previewPlayer := o.previewPlayer
	if previewPlayer == nil {
		previewPlayer = hover.NopPlayer{}
	}
	g.preview = hover.New(g.items, previewPlayer, g.loop,
		hover.WithSurface(o.previewSurface),
		hover.WithLogger(o.log))

	lbOpts := []lightbox.Option{
		lightbox.WithLogger(o.log),
		lightbox.WithSeparator(cfg.Lightbox.Separator),
	}
	if o.lightboxPlayer != nil {
		lbOpts = append(lbOpts, lightbox.WithPlayer(o.lightboxPlayer))
		if cfg.Lightbox.Autoplay {
			lbOpts = append(lbOpts, lightbox.WithAutoplay(g.loop))
		}
	}
	g.lightbox = lightbox.New(g.items, o.lightboxSurface, lbOpts...)

	if o.mapProvider != nil && cfg.Map.Enabled {
		g.mapSync = mapsync.New(o.mapProvider, cfg.Map.ContainerID, g.lightbox,
			mapsync.WithLogger(o.log),
			mapsync.WithDispatcher(g.loop),
			mapsync.WithFocusZoom(cfg.Map.FocusZoom))
	}

	fetcher := o.fetcher
	if fetcher == nil && cfg.Scroll.URLTemplate != "" {
		fetcher, err = scroll.NewHTTPFetcher(cfg.Scroll.URLTemplate,
			scroll.WithFetchLogger(o.log),
			scroll.WithMarkupOptions(cfg.MarkupOptions()))
		if err != nil {
			return nil, err
		}
	}
	if fetcher != nil && cfg.Scroll.Enabled {
		scrollOpts := []scroll.Option{
			scroll.WithLayout(adapter),
			scroll.WithListener(g.reveal),
			scroll.WithLogger(o.log),
			scroll.WithThreshold(cfg.Scroll.Threshold),
		}
		if g.mapSync != nil {
			scrollOpts = append(scrollOpts, scroll.WithListener(g.mapSync))
		}
		if doc != nil && doc.Grid.Found {
			scrollOpts = append(scrollOpts, scroll.WithStartPage(doc.Grid.CurrentPage))
		}
		g.loader = scroll.NewLoader(g.items, timeoutFetcher(fetcher, cfg.Scroll), g.loop, g.loop, scrollOpts...)

		if doc != nil && doc.Grid.TotalPages > 0 && doc.Grid.CurrentPage >= doc.Grid.TotalPages {
			g.loader.Disable()
		}
	}

	return g, nil
}

// Start performs the initial layout and places map markers. Calling it again does nothing.
func (g *Gallery) Start() error {
	if g.started {
		return nil
	}
	g.started = true

	// Laying out before any asset has loaded is expected; reveal re-packs
	// as loads complete.
	g.adapter.Relayout()

	if g.mapSync != nil {
		if err := g.mapSync.Bind(g.items.Geotagged()); err != nil {
			return fmt.Errorf("start map: %w", err)
		}
	}
	g.log.Info("gallery started",
		zap.Int("items", g.items.Len()),
		zap.Bool("scroll", g.loader != nil),
		zap.Bool("map", g.mapSync != nil))
	return nil
}

// Post dispatches ev on the UI loop. Safe from any goroutine.
func (g *Gallery) Post(ev Event) {
	g.loop.Post(func() { g.Dispatch(ev) })
}

// Run starts the gallery and the UI loop and blocks until ctx is done or a
// driver returns. Drivers run alongside the loop, typically feeding host
// events through Post; when any of them returns, everything stops. A
// driver error is returned; cancellation is a normal stop.
func (g *Gallery) Run(ctx context.Context, drivers ...func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	// started is closed once Start has run on the loop; startErr is read
	// only after that.
	started := make(chan struct{})
	var startErr error
	g.loop.Post(func() {
		startErr = g.Start()
		close(started)
		if startErr != nil {
			cancel()
		}
	})

	eg.Go(func() error {
		if err := g.loop.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	for _, drive := range drivers {
		drive := drive
		eg.Go(func() error {
			defer cancel()
			select {
			case <-started:
			case <-ctx.Done():
				return nil
			}
			if startErr != nil {
				return nil
			}
			return drive(ctx)
		})
	}

	err := eg.Wait()
	g.Close()
	if startErr != nil {
		return startErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops in-flight work. The loop must not be running.
func (g *Gallery) Close() {
	if g.closed {
		return
	}
	g.closed = true
	g.reveal.Stop()
	g.preview.Close()
	g.lightbox.Shutdown()
	if g.loader != nil {
		g.loader.Close()
	}
	if g.mapSync != nil {
		g.mapSync.Close()
	}
}

// Stats returns a summary of the runtime state.
func (g *Gallery) Stats() Stats {
	s := Stats{
		Items:           g.items.Len(),
		Pages:           1,
		Relayouts:       g.adapter.Stats().Relayouts,
		RevealRelayouts: g.reveal.Relayouts(),
		ResizeRelayouts: g.reveal.ResizeRelayouts(),
	}
	if g.loader != nil {
		st, ls := g.loader.State(), g.loader.Stats()
		s.Pages = st.Page
		s.HasMore = st.HasMore
		s.Fetches = ls.Fetches
		s.FetchFailures = ls.Failures
	}
	if g.mapSync != nil {
		s.Markers = g.mapSync.Markers()
	}
	return s
}

// Config returns the configuration the gallery was built with.
func (g *Gallery) Config() Config { return g.cfg }

// Loop returns the UI loop.
func (g *Gallery) Loop() *loop.Loop { return g.loop }

// Items returns the collection.
func (g *Gallery) Items() *media.Collection { return g.items }

// Lightbox returns the viewer.
func (g *Gallery) Lightbox() *lightbox.Controller { return g.lightbox }

// Preview returns the hover preview controller.
func (g *Gallery) Preview() *hover.Preview { return g.preview }

// Reveal returns the progressive reveal controller.
func (g *Gallery) Reveal() *layout.Reveal { return g.reveal }

// Masonry returns the built-in packer, or nil with a custom engine.
func (g *Gallery) Masonry() *layout.Masonry { return g.masonry }

// Loader returns the infinite scroll loader, or nil without a page source.
func (g *Gallery) Loader() *scroll.Loader { return g.loader }

// Map returns the marker sync, or nil without a map.
func (g *Gallery) Map() *mapsync.Sync { return g.mapSync }

// timeoutFetcher bounds each fetch by the configured timeout.
func timeoutFetcher(f scroll.Fetcher, cfg ScrollConfig) scroll.Fetcher {
	d := cfg.Timeout()
	if d <= 0 {
		return f
	}
	return scroll.FetcherFunc(func(ctx context.Context, page int) ([]media.Item, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return f.FetchPage(ctx, page)
	})
}
