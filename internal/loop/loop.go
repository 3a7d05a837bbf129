// Package loop provides the single goroutine on which all gallery state is
// mutated. Asynchronous work (fetches, play requests, timers) runs elsewhere
// and posts its resolution back with Post.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Run when another Run is active.
var ErrAlreadyRunning = errors.New("loop: already running")

// Config configures the loop.
type Config struct {
	// TargetFPS is the frame rate at which RequestFrame callbacks run (default: 60).
	TargetFPS int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{TargetFPS: 60}
}

// Frame provides context for each frame tick.
type Frame struct {
	// Number is the monotonically increasing frame counter.
	Number uint64

	// DeltaTime is seconds since the previous frame.
	DeltaTime float64

	// Time is seconds since loop start.
	Time float64
}

// Stats reports loop counters.
type Stats struct {
	Frames uint64
	Tasks  uint64
	Panics uint64
}

// Loop is a cooperative event loop: tasks posted from any goroutine run in
// order on the goroutine that calls Run (or RunPending), and frame callbacks
// run once per tick.
type Loop struct {
	config Config
	log    *zap.Logger

	mu     sync.Mutex
	tasks  []func()
	frames []func()
	wake   chan struct{}

	// Timing
	targetFrameTime time.Duration
	startTime       time.Time
	lastFrameTime   time.Time

	running    atomic.Bool
	frameCount atomic.Uint64
	taskCount  atomic.Uint64
	panicCount atomic.Uint64
}

// New creates a loop. A nil logger disables logging.
func New(config Config, log *zap.Logger) *Loop {
	if config.TargetFPS < 1 {
		config.TargetFPS = 60
	}
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now()
	return &Loop{
		config:          config,
		log:             log.Named("loop"),
		wake:            make(chan struct{}, 1),
		targetFrameTime: time.Second / time.Duration(config.TargetFPS),
		startTime:       now,
		lastFrameTime:   now,
	}
}

// Post schedules fn to run on the loop goroutine. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RequestFrame schedules fn for the next frame tick. Callbacks requested
// while a tick is running wait for the following tick.
func (l *Loop) RequestFrame(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.frames = append(l.frames, fn)
	l.mu.Unlock()
}

// AfterFunc runs fn on the loop goroutine once d has elapsed. The returned
// function cancels the timer; a callback already posted may still run, so
// callers that need exact cancellation must guard with their own state.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	t := time.AfterFunc(d, func() { l.Post(fn) })
	return func() { t.Stop() }
}

// RunPending runs every task queued so far, including tasks those tasks
// post, and returns how many ran.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			l.run(fn)
			n++
		}
	}
}

// Tick runs the frame callbacks requested before the tick started.
func (l *Loop) Tick(now time.Time) Frame {
	l.mu.Lock()
	batch := l.frames
	l.frames = nil
	l.mu.Unlock()

	frame := Frame{
		Number:    l.frameCount.Add(1),
		DeltaTime: now.Sub(l.lastFrameTime).Seconds(),
		Time:      now.Sub(l.startTime).Seconds(),
	}
	l.lastFrameTime = now

	for _, fn := range batch {
		l.run(fn)
	}
	return frame
}

// HasPendingFrames reports whether a frame callback is waiting for a tick.
func (l *Loop) HasPendingFrames() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames) > 0
}

// Run processes tasks and frame ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	ticker := time.NewTicker(l.targetFrameTime)
	defer ticker.Stop()

	l.log.Debug("loop started", zap.Int("fps", l.config.TargetFPS))
	for {
		select {
		case <-ctx.Done():
			l.RunPending()
			l.log.Debug("loop stopped", zap.Uint64("frames", l.frameCount.Load()))
			return ctx.Err()
		case <-l.wake:
			l.RunPending()
		case now := <-ticker.C:
			l.RunPending()
			if l.HasPendingFrames() {
				l.Tick(now)
			}
		}
	}
}

// IsRunning reports whether Run is active.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Stats returns loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames: l.frameCount.Load(),
		Tasks:  l.taskCount.Load(),
		Panics: l.panicCount.Load(),
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panicCount.Add(1)
			l.log.Error("recovered panic in loop task", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	l.taskCount.Add(1)
	fn()
}
