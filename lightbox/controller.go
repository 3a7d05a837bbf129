// Package lightbox implements the full-screen viewer: opening an item,
// cycling through the collection and closing again.
package lightbox

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/agiangrant/gallery/media"
)

// State is the viewer state.
type State uint8

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Session is the viewer's navigation state. Index is meaningful only while
// Open.
type Session struct {
	Open  bool
	Index int
}

// Keys handled while the viewer is open.
const (
	KeyEscape     = "Escape"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

// Surface draws the viewer.
type Surface interface {
	Render(v View)
}

// Player controls the viewer's video element. Play may block and is called
// from its own goroutine; Pause is called on the UI loop.
type Player interface {
	Play(ctx context.Context) error
	Pause()
}

// Dispatcher posts a function onto the UI loop.
type Dispatcher interface {
	Post(fn func())
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithPlayer sets the video player. Without one, video items are shown but
// never paused or started by the controller.
func WithPlayer(p Player) Option {
	return func(c *Controller) { c.player = p }
}

// WithSeparator sets the string joining exposure settings.
func WithSeparator(sep string) Option {
	return func(c *Controller) { c.sep = sep }
}

// WithAutoplay starts video items as soon as they are shown. Play results
// are posted through disp.
func WithAutoplay(disp Dispatcher) Option {
	return func(c *Controller) { c.disp = disp }
}

// Controller is the lightbox state machine. It is owned by the UI loop.
type Controller struct {
	items   *media.Collection
	surface Surface
	player  Player
	disp    Dispatcher
	log     *zap.Logger
	sep     string

	state State
	index int
	view  View

	gen    uint64 // bumped whenever the shown item changes or the viewer closes
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a closed viewer over items.
func New(items *media.Collection, surface Surface, opts ...Option) *Controller {
	c := &Controller{
		items:   items,
		surface: surface,
		log:     zap.NewNop(),
		sep:     DefaultSeparator,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("lightbox")
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Open shows the item at index. An out-of-range index returns an error
// matching media.ErrIndexOutOfRange and leaves the viewer unchanged.
func (c *Controller) Open(index int) error {
	it, err := c.items.Get(index)
	if err != nil {
		return fmt.Errorf("open lightbox: %w", err)
	}
	c.state = Open
	c.show(it)
	c.log.Debug("opened", zap.Int("index", index), zap.Stringer("kind", it.Kind))
	return nil
}

// Navigate moves by direction with wraparound in both directions. It does
// nothing while closed.
func (c *Controller) Navigate(direction int) {
	if c.state != Open {
		return
	}
	n := c.items.Len()
	if n == 0 {
		return
	}
	next := ((c.index+direction)%n + n) % n
	it, err := c.items.Get(next)
	if err != nil {
		c.log.Error("navigate", zap.Int("index", next), zap.Error(err))
		return
	}
	c.show(it)
}

// Close hides the viewer. A video is paused and its source cleared. Closing
// a closed viewer does nothing.
func (c *Controller) Close() {
	if c.state != Open {
		return
	}
	if c.view.Video.Visible {
		c.pause()
	}
	c.state = Closed
	c.gen++
	c.view = View{Index: c.index}
	c.render()
	c.log.Debug("closed", zap.Int("index", c.index))
}

// HandleKey applies a keyboard shortcut and reports whether it was
// consumed. Keys are never consumed while closed.
func (c *Controller) HandleKey(key string) bool {
	if c.state != Open {
		return false
	}
	switch key {
	case KeyEscape:
		c.Close()
	case KeyArrowLeft:
		c.Navigate(-1)
	case KeyArrowRight:
		c.Navigate(1)
	default:
		return false
	}
	return true
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Session returns the navigation state.
func (c *Controller) Session() Session {
	return Session{Open: c.state == Open, Index: c.index}
}

// View returns the last rendered view.
func (c *Controller) View() View {
	v := c.view
	v.Meta.Exif = append([]string(nil), v.Meta.Exif...)
	return v
}

// Shutdown cancels a pending autoplay request.
func (c *Controller) Shutdown() {
	c.cancel()
}

func (c *Controller) show(it media.Item) {
	prev := c.view
	c.index = it.Index
	c.gen++

	v := View{
		Open:         true,
		Index:        it.Index,
		Kind:         it.Kind,
		NavHidden:    c.items.Len() <= 1,
		ScrollLocked: true,
		Meta:         MetadataFor(it, c.sep),
	}
	if it.IsVideo() {
		v.Video = Media{Visible: true, Source: it.PlaybackRef()}
	} else {
		v.Image = Media{Visible: true, Source: it.FullRef}
	}

	// Leaving a video, or switching to another one, stops the old playback.
	if prev.Video.Visible && prev.Video.Source != v.Video.Source {
		c.pause()
	}

	c.view = v
	c.render()

	if v.Video.Visible && c.disp != nil && c.player != nil {
		c.autoplay()
	}
}

func (c *Controller) autoplay() {
	gen := c.gen
	ctx := c.ctx
	go func() {
		err := c.player.Play(ctx)
		c.disp.Post(func() { c.resolvePlay(gen, err) })
	}()
}

func (c *Controller) resolvePlay(gen uint64, err error) {
	if gen != c.gen {
		// A late start with no video on screen would play unseen.
		if err == nil && !c.view.Video.Visible {
			c.pause()
		}
		return
	}
	if err == nil {
		return
	}
	if errors.Is(err, media.ErrPlaybackNotAllowed) {
		c.log.Info("autoplay blocked; waiting for the user to press play", zap.Int("index", c.index))
		return
	}
	if !errors.Is(err, context.Canceled) {
		c.log.Warn("autoplay failed", zap.Int("index", c.index), zap.Error(err))
	}
}

func (c *Controller) pause() {
	if c.player != nil {
		c.player.Pause()
	}
}

func (c *Controller) render() {
	if c.surface != nil {
		c.surface.Render(c.View())
	}
}
