// Package hover drives inline video previews: hovering a video tile plays a
// muted preview, leaving it pauses and rewinds.
package hover

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/agiangrant/gallery/media"
)

// State is the preview state of one video item.
type State uint8

const (
	Idle State = iota
	Preloading
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preloading:
		return "preloading"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// HoverState is the per-item flag pair. Preloaded is kept across hovers;
// Playing is cleared on leave.
type HoverState struct {
	Preloaded bool
	Playing   bool
}

// Visual is what a preview tile should show.
type Visual struct {
	VideoVisible      bool
	PosterVisible     bool
	PlayButtonVisible bool
}

var (
	playingVisual = Visual{VideoVisible: true}
	posterVisual  = Visual{PosterVisible: true, PlayButtonVisible: true}
)

// Player controls the inline preview elements. Play may block and is called
// from its own goroutine; the other methods are called on the UI loop.
type Player interface {
	Preload(index int)
	Play(ctx context.Context, index int) error
	Pause(index int)
	Rewind(index int)
}

// Surface shows a tile's visual state.
type Surface interface {
	RenderPreview(index int, v Visual)
}

// Dispatcher posts a function onto the UI loop.
type Dispatcher interface {
	Post(fn func())
}

// Option configures a Preview.
type Option func(*Preview)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Preview) {
		if log != nil {
			p.log = log
		}
	}
}

// WithSurface sets the surface tiles are rendered to.
func WithSurface(s Surface) Option {
	return func(p *Preview) { p.surface = s }
}

type entry struct {
	state   State
	flags   HoverState
	hovered bool
	gen     uint64 // bumped on every transition; play results from older generations are stale
	retry   bool   // armed by a permission-gated rejection
}

// Preview is the hover state machine for every video item. It is owned by
// the UI loop.
type Preview struct {
	items   *media.Collection
	player  Player
	surface Surface
	disp    Dispatcher
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	entries map[int]*entry
}

// New creates a preview controller. Play results are posted through disp.
func New(items *media.Collection, player Player, disp Dispatcher, opts ...Option) *Preview {
	p := &Preview{
		items:   items,
		player:  player,
		disp:    disp,
		log:     zap.NewNop(),
		entries: make(map[int]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("hover")
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

// MouseEnter starts the preview of a video item. The first hover also
// preloads it. Non-video items and unknown indices are ignored.
func (p *Preview) MouseEnter(index int) {
	e := p.videoEntry(index)
	if e == nil || e.hovered {
		return
	}
	e.hovered = true

	if !e.flags.Preloaded {
		e.state = Preloading
		e.flags.Preloaded = true
		p.player.Preload(index)
	}
	p.play(index, e)
}

// MouseLeave stops the preview: pause, rewind and show the poster. Any play
// request still in flight becomes stale.
func (p *Preview) MouseLeave(index int) {
	e := p.videoEntry(index)
	if e == nil || !e.hovered {
		return
	}
	e.hovered = false
	p.stop(index, e)
}

// Reset stops the preview of index without changing whether the pointer is
// over it, and disarms its retry. Used when the item opens in the lightbox.
func (p *Preview) Reset(index int) {
	e, ok := p.entries[index]
	if !ok {
		return
	}
	e.retry = false
	if e.state != Idle {
		p.stop(index, e)
	}
}

// Click handles a user gesture anywhere on the page. Every armed retry is
// consumed; items still hovered replay. It returns the number replayed.
func (p *Preview) Click() int {
	var armed []int
	for i, e := range p.entries {
		if e.retry {
			armed = append(armed, i)
		}
	}
	sort.Ints(armed)

	replayed := 0
	for _, i := range armed {
		e := p.entries[i]
		e.retry = false
		if e.hovered && e.state == Idle {
			p.log.Debug("retrying playback after gesture", zap.Int("index", i))
			p.play(i, e)
			replayed++
		}
	}
	return replayed
}

// State returns the preview state of index. Unknown items are Idle.
func (p *Preview) State(index int) (State, HoverState) {
	e, ok := p.entries[index]
	if !ok {
		return Idle, HoverState{}
	}
	return e.state, e.flags
}

// RetryArmed reports whether a gesture retry is armed for index.
func (p *Preview) RetryArmed(index int) bool {
	e, ok := p.entries[index]
	return ok && e.retry
}

// Close cancels play requests in flight.
func (p *Preview) Close() {
	p.cancel()
}

func (p *Preview) videoEntry(index int) *entry {
	if e, ok := p.entries[index]; ok {
		return e
	}
	it, err := p.items.Get(index)
	if err != nil || !it.IsVideo() {
		return nil
	}
	e := &entry{}
	p.entries[index] = e
	return e
}

func (p *Preview) play(index int, e *entry) {
	e.state = Playing
	e.flags.Playing = true
	e.gen++
	gen := e.gen
	p.render(index, playingVisual)

	ctx := p.ctx
	go func() {
		err := p.player.Play(ctx, index)
		p.disp.Post(func() { p.resolve(index, gen, err) })
	}()
}

func (p *Preview) stop(index int, e *entry) {
	e.state = Idle
	e.flags.Playing = false
	e.gen++
	p.player.Pause(index)
	p.player.Rewind(index)
	p.render(index, posterVisual)
}

func (p *Preview) resolve(index int, gen uint64, err error) {
	e := p.entries[index]
	if gen != e.gen {
		// The item moved on. A late success means the element is playing
		// behind the poster, so stop it again; never re-show the video.
		if err == nil && e.state == Idle {
			p.player.Pause(index)
			p.player.Rewind(index)
		}
		return
	}
	if err == nil {
		return
	}

	e.state = Idle
	e.flags.Playing = false
	e.gen++
	p.render(index, posterVisual)

	if errors.Is(err, media.ErrPlaybackNotAllowed) {
		e.retry = true
		p.log.Info("preview blocked until user gesture", zap.Int("index", index))
		return
	}
	if !errors.Is(err, context.Canceled) {
		p.log.Warn("preview play failed", zap.Int("index", index), zap.Error(err))
	}
}

func (p *Preview) render(index int, v Visual) {
	if p.surface != nil {
		p.surface.RenderPreview(index, v)
	}
}

// NopPlayer is a Player for hosts without inline video. Play always
// succeeds.
type NopPlayer struct{}

func (NopPlayer) Preload(int)                     {}
func (NopPlayer) Play(context.Context, int) error { return nil }
func (NopPlayer) Pause(int)                       {}
func (NopPlayer) Rewind(int)                      {}
