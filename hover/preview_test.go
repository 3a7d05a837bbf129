package hover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/agiangrant/gallery/internal/looptest"
	"github.com/agiangrant/gallery/media"
)

type fakePlayer struct {
	mu       sync.Mutex
	playErr  error
	plays    []int
	preloads []int
	pauses   []int
	rewinds  []int
}

func (f *fakePlayer) Preload(i int) { f.preloads = append(f.preloads, i) }
func (f *fakePlayer) Pause(i int)   { f.pauses = append(f.pauses, i) }
func (f *fakePlayer) Rewind(i int)  { f.rewinds = append(f.rewinds, i) }

func (f *fakePlayer) Play(_ context.Context, i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, i)
	return f.playErr
}

func (f *fakePlayer) setErr(err error) {
	f.mu.Lock()
	f.playErr = err
	f.mu.Unlock()
}

type recordingSurface struct {
	last map[int]Visual
}

func (s *recordingSurface) RenderPreview(i int, v Visual) {
	if s.last == nil {
		s.last = make(map[int]Visual)
	}
	s.last[i] = v
}

// newFixture builds image 0 and video 1 and 2.
func newFixture(t *testing.T) (*Preview, *fakePlayer, *recordingSurface, *looptest.Queue) {
	t.Helper()
	items := media.NewCollection(
		media.Item{Kind: media.KindImage},
		media.Item{Kind: media.KindVideo},
		media.Item{Kind: media.KindVideo},
	)
	player := &fakePlayer{}
	surface := &recordingSurface{}
	q := looptest.NewQueue()
	p := New(items, player, q, WithSurface(surface), WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(p.Close)
	return p, player, surface, q
}

func TestHoverPlayAndLeave(t *testing.T) {
	p, player, surface, q := newFixture(t)

	p.MouseEnter(1)
	if st, hs := p.State(1); st != Playing || !hs.Preloaded || !hs.Playing {
		t.Fatalf("after enter: %v %+v", st, hs)
	}
	if surface.last[1] != playingVisual {
		t.Errorf("visual = %+v, want video shown", surface.last[1])
	}
	q.Await(t, 1)
	if st, _ := p.State(1); st != Playing {
		t.Errorf("state after successful play = %v", st)
	}

	p.MouseLeave(1)
	st, hs := p.State(1)
	if st != Idle || hs.Playing || !hs.Preloaded {
		t.Errorf("after leave: %v %+v", st, hs)
	}
	if surface.last[1] != posterVisual {
		t.Errorf("visual = %+v, want poster", surface.last[1])
	}
	if len(player.pauses) != 1 || len(player.rewinds) != 1 {
		t.Errorf("pauses=%v rewinds=%v", player.pauses, player.rewinds)
	}

	p.MouseEnter(1)
	q.Await(t, 1)
	if len(player.preloads) != 1 {
		t.Errorf("preloads = %v, want only the first hover", player.preloads)
	}
}

func TestHoverIgnoresImagesAndUnknownItems(t *testing.T) {
	p, player, _, q := newFixture(t)

	p.MouseEnter(0)
	p.MouseEnter(42)
	p.MouseLeave(0)
	if q.Len() != 0 || len(player.preloads) != 0 {
		t.Errorf("image or unknown item triggered playback")
	}
	if st, _ := p.State(0); st != Idle {
		t.Errorf("image state = %v", st)
	}
}

func TestStaleSuccessAfterLeaveStaysIdle(t *testing.T) {
	p, player, surface, q := newFixture(t)

	p.MouseEnter(1)
	p.MouseLeave(1) // before the play request resolves
	q.Await(t, 1)

	if st, _ := p.State(1); st != Idle {
		t.Fatalf("state = %v, want idle", st)
	}
	if surface.last[1] != posterVisual {
		t.Errorf("stale success re-showed the video: %+v", surface.last[1])
	}
	if len(player.pauses) != 2 || len(player.rewinds) != 2 {
		t.Errorf("late success not re-paused: pauses=%v rewinds=%v", player.pauses, player.rewinds)
	}
}

func TestStaleRejectionAfterLeaveIsIgnored(t *testing.T) {
	p, player, _, q := newFixture(t)
	player.setErr(media.ErrPlaybackNotAllowed)

	p.MouseEnter(1)
	p.MouseLeave(1)
	q.Await(t, 1)

	if p.RetryArmed(1) {
		t.Error("stale rejection armed a retry")
	}
	if len(player.pauses) != 1 {
		t.Errorf("pauses = %v, want only the leave", player.pauses)
	}
}

func TestRejectionRevertsAndRetriesOnClick(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantRetry bool
	}{
		{name: "permission gate", err: fmt.Errorf("play: %w", media.ErrPlaybackNotAllowed), wantRetry: true},
		{name: "transient", err: errors.New("decode error"), wantRetry: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, player, surface, q := newFixture(t)
			player.setErr(tt.err)

			p.MouseEnter(1)
			q.Await(t, 1)

			if st, hs := p.State(1); st != Idle || hs.Playing {
				t.Fatalf("after rejection: %v %+v", st, hs)
			}
			if surface.last[1] != posterVisual {
				t.Errorf("visual = %+v, want poster", surface.last[1])
			}
			if p.RetryArmed(1) != tt.wantRetry {
				t.Fatalf("RetryArmed = %v, want %v", p.RetryArmed(1), tt.wantRetry)
			}

			player.setErr(nil)
			replayed := p.Click()
			if tt.wantRetry {
				if replayed != 1 {
					t.Fatalf("Click() replayed %d, want 1", replayed)
				}
				q.Await(t, 1)
				if st, _ := p.State(1); st != Playing {
					t.Errorf("state after retry = %v", st)
				}
			} else if replayed != 0 {
				t.Errorf("Click() replayed %d without an armed retry", replayed)
			}
			if p.RetryArmed(1) {
				t.Error("retry still armed after click")
			}
			if p.Click() != 0 {
				t.Error("second click replayed again")
			}
		})
	}
}

func TestClickDisarmsRetryForItemNoLongerHovered(t *testing.T) {
	p, player, _, q := newFixture(t)
	player.setErr(media.ErrPlaybackNotAllowed)

	p.MouseEnter(2)
	q.Await(t, 1)
	p.MouseLeave(2)
	player.setErr(nil)

	if n := p.Click(); n != 0 {
		t.Errorf("Click() replayed %d items, want 0", n)
	}
	if p.RetryArmed(2) {
		t.Error("retry still armed")
	}
	if q.Len() != 0 {
		t.Error("play request issued for an item no longer hovered")
	}
}

func TestResetStopsPlayingPreview(t *testing.T) {
	p, player, surface, q := newFixture(t)

	p.MouseEnter(2)
	q.Await(t, 1)
	p.Reset(2)

	if st, _ := p.State(2); st != Idle {
		t.Errorf("state = %v, want idle", st)
	}
	if surface.last[2] != posterVisual || len(player.pauses) != 1 {
		t.Errorf("reset did not pause: visual=%+v pauses=%v", surface.last[2], player.pauses)
	}

	// The pointer is still over the tile, so a later leave stops it as usual.
	p.MouseLeave(2)
	if len(player.pauses) != 2 {
		t.Errorf("pauses = %v", player.pauses)
	}
}
