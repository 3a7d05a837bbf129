package layout

import (
	"time"

	"go.uber.org/zap"

	"github.com/agiangrant/gallery/media"
)

// Relayouter re-packs the grid. *Adapter implements it.
type Relayouter interface {
	Relayout()
}

// RevealConfig configures progressive reveal.
type RevealConfig struct {
	// BatchSize is the number of completed loads between re-layouts (default: 5).
	BatchSize int

	// ResizeQuiet is how long resize signals must stop before re-layout (default: 250ms).
	ResizeQuiet time.Duration
}

// DefaultRevealConfig returns the reference reveal settings.
func DefaultRevealConfig() RevealConfig {
	return RevealConfig{BatchSize: 5, ResizeQuiet: 250 * time.Millisecond}
}

// Reveal re-packs the grid as item assets finish loading. Loads and load
// failures both count as completion; re-layout happens after every
// BatchSize completions and once every observed item is complete, so a
// fixed set of N items causes at most ceil(N/BatchSize)+1 re-layouts.
//
// Reveal is owned by the UI loop.
type Reveal struct {
	target Relayouter
	cfg    RevealConfig
	log    *zap.Logger

	observed  map[int]bool // index -> credited
	total     int
	completed int
	relayouts int

	resize *Debouncer
}

// NewReveal creates a controller that re-packs target. sched drives the
// resize debouncer.
func NewReveal(target Relayouter, sched Scheduler, cfg RevealConfig, log *zap.Logger) *Reveal {
	d := DefaultRevealConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = d.BatchSize
	}
	if cfg.ResizeQuiet <= 0 {
		cfg.ResizeQuiet = d.ResizeQuiet
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reveal{
		target:   target,
		cfg:      cfg,
		log:      log.Named("reveal"),
		observed: make(map[int]bool),
	}
	r.resize = NewDebouncer(sched, cfg.ResizeQuiet, func() {
		r.log.Debug("resize settled")
		r.target.Relayout()
	})
	return r
}

// Observe starts tracking items. Items already loaded are credited at once.
// Items observed before are ignored.
func (r *Reveal) Observe(items []media.Item) {
	var cached []int
	for _, it := range items {
		if _, ok := r.observed[it.Index]; ok {
			continue
		}
		r.observed[it.Index] = false
		r.total++
		if it.Loaded {
			cached = append(cached, it.Index)
		}
	}
	// Credit only after total covers the whole batch, so a fully cached
	// batch reaches completion once.
	for _, i := range cached {
		r.credit(i)
	}
}

// Loaded records a successful asset load.
func (r *Reveal) Loaded(index int) {
	r.credit(index)
}

// Failed records a failed asset load. A broken asset must not stall
// progress, so it counts as completion.
func (r *Reveal) Failed(index int, err error) {
	r.log.Debug("asset failed", zap.Int("index", index), zap.Error(err))
	r.credit(index)
}

// Resized signals a viewport size change. Bursts collapse into one
// re-layout after the quiet interval.
func (r *Reveal) Resized(width float64) {
	if rs, ok := r.target.(Resizer); ok {
		rs.Resize(width)
	}
	r.resize.Trigger()
}

// Complete reports whether every observed item has completed.
func (r *Reveal) Complete() bool {
	return r.completed == r.total
}

// Progress returns completed and observed counts.
func (r *Reveal) Progress() (done, total int) {
	return r.completed, r.total
}

// Relayouts returns how many load-driven re-layouts were issued.
func (r *Reveal) Relayouts() int { return r.relayouts }

// ResizeRelayouts returns how many debounced resize re-layouts ran.
func (r *Reveal) ResizeRelayouts() int { return r.resize.Fired() }

// Stop cancels a pending resize re-layout.
func (r *Reveal) Stop() { r.resize.Stop() }

func (r *Reveal) credit(index int) {
	credited, ok := r.observed[index]
	if !ok || credited {
		return
	}
	r.observed[index] = true
	r.completed++

	if r.completed%r.cfg.BatchSize == 0 || r.completed == r.total {
		r.relayouts++
		r.log.Debug("batch relayout",
			zap.Int("completed", r.completed),
			zap.Int("total", r.total))
		r.target.Relayout()
	}
}

// ItemsAppended observes items added by pagination.
func (r *Reveal) ItemsAppended(items []media.Item) {
	r.Observe(items)
}
