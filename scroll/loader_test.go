package scroll

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/agiangrant/gallery/internal/looptest"
	"github.com/agiangrant/gallery/media"
)

// scriptedFetcher serves pages from a map; missing pages are empty.
type scriptedFetcher struct {
	mu    sync.Mutex
	pages map[int][]media.Item
	errs  map[int]error
	calls []int
	gate  chan struct{} // when set, each fetch waits for a value
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, page int) ([]media.Item, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[page]; err != nil {
		delete(f.errs, page)
		return nil, err
	}
	return f.pages[page], nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingLayout struct {
	appends   [][]int
	relayouts int
}

func (r *recordingLayout) Append(indices []int) { r.appends = append(r.appends, indices) }
func (r *recordingLayout) Relayout()            { r.relayouts++ }

type recordingListener struct {
	batches [][]media.Item
}

func (r *recordingListener) ItemsAppended(items []media.Item) {
	r.batches = append(r.batches, items)
}

func page(titles ...string) []media.Item {
	items := make([]media.Item, len(titles))
	for i, t := range titles {
		items[i] = media.Item{Title: t}
	}
	return items
}

var atEnd = Metrics{ScrollTop: 1800, ViewportHeight: 800, DocumentHeight: 2600}

func TestMetricsNearEnd(t *testing.T) {
	tests := []struct {
		name string
		m    Metrics
		want bool
	}{
		{name: "at threshold", m: Metrics{ScrollTop: 1400, ViewportHeight: 800, DocumentHeight: 2600}, want: true},
		{name: "one pixel above", m: Metrics{ScrollTop: 1399, ViewportHeight: 800, DocumentHeight: 2600}, want: false},
		{name: "short document", m: Metrics{ViewportHeight: 800, DocumentHeight: 600}, want: true},
		{name: "top of long page", m: Metrics{ViewportHeight: 800, DocumentHeight: 10000}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.NearEnd(DefaultThreshold); got != tt.want {
				t.Errorf("NearEnd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppendProtocol(t *testing.T) {
	items := media.NewCollection(page("a", "b")...)
	fetcher := &scriptedFetcher{pages: map[int][]media.Item{2: page("c", "d", "e")}}
	q := looptest.NewQueue()
	lay := &recordingLayout{}
	lis := &recordingListener{}
	l := NewLoader(items, fetcher, q, &looptest.Frames{},
		WithLayout(lay), WithListener(lis), WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(l.Close)

	if !l.LoadMore() {
		t.Fatal("LoadMore() = false on a fresh loader")
	}
	if !l.State().Loading {
		t.Fatal("Loading = false while fetching")
	}
	q.Await(t, 1)

	st := l.State()
	if st.Page != 2 || st.Loading || !st.HasMore {
		t.Errorf("State() = %+v, want page 2, idle, more", st)
	}
	if items.Len() != 5 {
		t.Fatalf("collection has %d items, want 5", items.Len())
	}
	if !reflect.DeepEqual(lay.appends, [][]int{{2, 3, 4}}) || lay.relayouts != 1 {
		t.Errorf("layout appends=%v relayouts=%d", lay.appends, lay.relayouts)
	}
	if len(lis.batches) != 1 || len(lis.batches[0]) != 3 || lis.batches[0][0].Index != 2 {
		t.Errorf("listener batches = %+v", lis.batches)
	}
}

func TestSingleFetchInFlight(t *testing.T) {
	fetcher := &scriptedFetcher{
		pages: map[int][]media.Item{2: page("x")},
		gate:  make(chan struct{}),
	}
	q := looptest.NewQueue()
	l := NewLoader(media.NewCollection(), fetcher, q, &looptest.Frames{})
	t.Cleanup(l.Close)

	if !l.LoadMore() {
		t.Fatal("first LoadMore() = false")
	}
	if l.LoadMore() || l.Check(atEnd) {
		t.Error("second request started while the first is unresolved")
	}

	fetcher.gate <- struct{}{}
	q.Await(t, 1)

	if n := fetcher.callCount(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestEmptyPageExhaustsForever(t *testing.T) {
	fetcher := &scriptedFetcher{}
	q := looptest.NewQueue()
	l := NewLoader(media.NewCollection(), fetcher, q, &looptest.Frames{})
	t.Cleanup(l.Close)

	l.LoadMore()
	q.Await(t, 1)
	if l.State().HasMore {
		t.Fatal("HasMore = true after an empty page")
	}

	for i := 0; i < 3; i++ {
		if l.Check(atEnd) || l.LoadMore() {
			t.Fatal("fetch started after exhaustion")
		}
	}
	if n := fetcher.callCount(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestFailureIsRetryable(t *testing.T) {
	fetcher := &scriptedFetcher{
		pages: map[int][]media.Item{2: page("x")},
		errs:  map[int]error{2: errors.New("connection reset")},
	}
	q := looptest.NewQueue()
	items := media.NewCollection()
	l := NewLoader(items, fetcher, q, &looptest.Frames{}, WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(l.Close)

	l.LoadMore()
	q.Await(t, 1)
	if st := l.State(); st.Page != 1 || st.Loading || !st.HasMore {
		t.Fatalf("State() after failure = %+v", st)
	}
	if l.Stats().Failures != 1 {
		t.Errorf("Failures = %d", l.Stats().Failures)
	}

	if !l.LoadMore() {
		t.Fatal("retry did not start")
	}
	q.Await(t, 1)
	if l.State().Page != 2 || items.Len() != 1 {
		t.Errorf("retry result: state %+v, %d items", l.State(), items.Len())
	}
}

func TestScrollThrottledToOneCheckPerFrame(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int][]media.Item{2: page("x")}}
	q := looptest.NewQueue()
	frames := &looptest.Frames{}
	l := NewLoader(media.NewCollection(), fetcher, q, frames, WithThreshold(100))
	t.Cleanup(l.Close)

	far := Metrics{ScrollTop: 0, ViewportHeight: 800, DocumentHeight: 5000}
	l.OnScroll(far)
	l.OnResize(far)
	l.OnScroll(atEnd) // newest sample of the frame
	if frames.Pending() != 1 {
		t.Fatalf("frame callbacks = %d, want 1", frames.Pending())
	}

	frames.Flush()
	if !l.State().Loading {
		t.Fatal("newest sample did not trigger a fetch")
	}

	l.OnScroll(far)
	frames.Flush()
	q.Await(t, 1)
	if n := fetcher.callCount(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestCloseDropsLateResult(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int][]media.Item{2: page("late")}}
	q := looptest.NewQueue()
	items := media.NewCollection()
	lis := &recordingListener{}
	l := NewLoader(items, fetcher, q, &looptest.Frames{}, WithListener(lis))

	l.LoadMore()
	l.Close()
	q.Await(t, 1)

	if items.Len() != 0 || len(lis.batches) != 0 {
		t.Errorf("result applied after Close: %d items", items.Len())
	}
	if l.Stats().Dropped != 1 || l.State().Loading {
		t.Errorf("Stats() = %+v, State() = %+v", l.Stats(), l.State())
	}
	if l.LoadMore() {
		t.Error("LoadMore() started after Close")
	}
}

func TestDisableAndStartPage(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int][]media.Item{4: page("p4")}}
	q := looptest.NewQueue()
	l := NewLoader(media.NewCollection(), fetcher, q, &looptest.Frames{}, WithStartPage(3))
	t.Cleanup(l.Close)

	l.LoadMore()
	q.Await(t, 1)
	if l.State().Page != 4 {
		t.Errorf("Page = %d, want 4", l.State().Page)
	}

	l.Disable()
	if l.LoadMore() {
		t.Error("LoadMore() started after Disable")
	}
}
