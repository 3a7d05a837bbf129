// Package looptest provides manual stand-ins for the UI loop so tests can
// drive asynchronous interleavings deterministically.
package looptest

import (
	"sort"
	"sync"
	"testing"
	"time"
)

// Queue is a dispatcher whose tasks run only when the test asks.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	notify chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Post records fn. Safe from any goroutine.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// RunPending runs queued tasks, including ones they post, and returns the count.
func (q *Queue) RunPending() int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Await blocks until at least n tasks are queued, then runs everything
// queued. It fails the test after two seconds.
func (q *Queue) Await(t testing.TB, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for q.Len() < n {
		select {
		case <-q.notify:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("looptest: waited for %d posted tasks, have %d", n, q.Len())
		}
	}
	q.RunPending()
}

// Frames is a manual frame scheduler.
type Frames struct {
	callbacks []func()
	ticks     int
}

// RequestFrame records fn for the next Flush.
func (f *Frames) RequestFrame(fn func()) {
	f.callbacks = append(f.callbacks, fn)
}

// Pending returns the number of callbacks waiting for a frame.
func (f *Frames) Pending() int { return len(f.callbacks) }

// Ticks returns how many flushes ran at least one callback.
func (f *Frames) Ticks() int { return f.ticks }

// Flush simulates one frame and returns the number of callbacks run.
func (f *Frames) Flush() int {
	batch := f.callbacks
	f.callbacks = nil
	if len(batch) > 0 {
		f.ticks++
	}
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Timers is a manual timer scheduler with a virtual clock.
type Timers struct {
	now    time.Duration
	seq    int
	timers []*timer
}

type timer struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// AfterFunc schedules fn at now+d on the virtual clock.
func (s *Timers) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	s.seq++
	tm := &timer{at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, tm)
	return func() { tm.cancelled = true }
}

// Pending returns the number of live timers.
func (s *Timers) Pending() int {
	n := 0
	for _, tm := range s.timers {
		if !tm.cancelled {
			n++
		}
	}
	return n
}

// Advance moves the virtual clock forward and fires due timers in order.
func (s *Timers) Advance(d time.Duration) {
	target := s.now + d
	for {
		due := s.due(target)
		if due == nil {
			break
		}
		s.now = due.at
		due.cancelled = true
		due.fn()
	}
	s.now = target
	s.compact()
}

func (s *Timers) due(target time.Duration) *timer {
	var live []*timer
	for _, tm := range s.timers {
		if !tm.cancelled && tm.at <= target {
			live = append(live, tm)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at == live[j].at {
			return live[i].seq < live[j].seq
		}
		return live[i].at < live[j].at
	})
	return live[0]
}

func (s *Timers) compact() {
	kept := s.timers[:0]
	for _, tm := range s.timers {
		if !tm.cancelled {
			kept = append(kept, tm)
		}
	}
	s.timers = kept
}
