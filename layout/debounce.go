package layout

import "time"

// Scheduler runs fn on the UI loop after d. internal/loop.Loop implements it.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Debouncer coalesces bursts of Trigger calls into a single callback that
// runs once the calls have been quiet for the configured interval.
type Debouncer struct {
	sched Scheduler
	quiet time.Duration
	fn    func()

	cancel func()
	gen    uint64
	fired  int
}

// NewDebouncer creates a debouncer that calls fn after quiet.
func NewDebouncer(sched Scheduler, quiet time.Duration, fn func()) *Debouncer {
	return &Debouncer{sched: sched, quiet: quiet, fn: fn}
}

// Trigger restarts the quiet interval.
func (d *Debouncer) Trigger() {
	if d.cancel != nil {
		d.cancel()
	}
	d.gen++
	gen := d.gen
	d.cancel = d.sched.AfterFunc(d.quiet, func() {
		// A cancelled timer may already have posted its callback.
		if gen != d.gen {
			return
		}
		d.cancel = nil
		d.fired++
		d.fn()
	})
}

// Stop drops a pending callback.
func (d *Debouncer) Stop() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.gen++
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool { return d.cancel != nil }

// Fired returns how many times the callback ran.
func (d *Debouncer) Fired() int { return d.fired }
