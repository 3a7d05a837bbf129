package gallery

import (
	"go.uber.org/zap"

	"github.com/agiangrant/gallery/lightbox"
)

// ============================================================================
// Event Dispatch
// ============================================================================

// Dispatch routes a host event to the components that handle it. It must
// run on the UI loop; use Post from other goroutines. It returns false for
// events nothing handled.
func (g *Gallery) Dispatch(ev Event) bool {
	if g.closed {
		return false
	}
	switch ev.Type {
	case EventMouseEnter:
		g.preview.MouseEnter(ev.Index)
		return true
	case EventMouseLeave:
		g.preview.MouseLeave(ev.Index)
		return true
	case EventClick:
		return g.dispatchClick(ev)
	case EventKeyDown:
		return g.lightbox.HandleKey(ev.Key)
	case EventScroll:
		if g.loader == nil {
			return false
		}
		g.loader.OnScroll(ev.Metrics)
		return true
	case EventResize:
		if g.loader != nil {
			g.loader.OnResize(ev.Metrics)
		}
		g.reveal.Resized(ev.Width)
		return true
	case EventLoad:
		g.reveal.Loaded(ev.Index)
		return true
	case EventLoadError:
		g.reveal.Failed(ev.Index, ev.Err)
		return true
	default:
		g.log.Debug("unhandled event", zap.Stringer("type", ev.Type))
		return false
	}
}

// ============================================================================
// Click Dispatch
// ============================================================================

// dispatchClick handles a click. Any click is a user gesture, so armed
// preview retries run first.
func (g *Gallery) dispatchClick(ev Event) bool {
	replayed := g.preview.Click()

	switch ev.Target {
	case TargetItem:
		g.preview.Reset(ev.Index)
		if err := g.lightbox.Open(ev.Index); err != nil {
			g.log.Warn("open failed", zap.Int("index", ev.Index), zap.Error(err))
			return false
		}
		return true
	case TargetBackdrop, TargetClose:
		if g.lightbox.State() != lightbox.Open {
			return replayed > 0
		}
		g.lightbox.Close()
		return true
	case TargetPrev:
		g.lightbox.Navigate(-1)
		return g.lightbox.State() == lightbox.Open
	case TargetNext:
		g.lightbox.Navigate(1)
		return g.lightbox.State() == lightbox.Open
	default:
		return replayed > 0
	}
}
