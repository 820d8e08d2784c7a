package slice

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
)

type fetchReply struct {
	records []domain.ActivityRecord
	err     error
}

// gatedFetcher blocks each FetchRecent call until the test supplies a reply.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   int
	replies chan fetchReply
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{replies: make(chan fetchReply, 4)}
}

func (f *gatedFetcher) FetchRecent(ctx context.Context, tenantID, userID string, count int, filter domain.ActivityType) ([]domain.ActivityRecord, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	reply := <-f.replies
	return reply.records, reply.err
}

func (f *gatedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestView(t *testing.T, fetcher Fetcher) (*View, *RenderLoop, *Broadcaster) {
	t.Helper()

	loop := NewRenderLoop()
	t.Cleanup(loop.Close)
	broadcaster := NewBroadcaster()

	view := NewView(context.Background(), ViewConfig{
		URI:     "https://fit.example.com/slices/activities?activityType=RUN&userId=user-1",
		Key:     "tenant-1|run-slice",
		Filter:  domain.ActivityTypeRun,
		Count:   5,
		Fetcher: fetcher,
		Loop:    loop,
		Changes: broadcaster,
		Logger:  log.New(testWriter{t}, "", 0),
	})
	return view, loop, broadcaster
}

func waitDelivered(t *testing.T, view *View) {
	t.Helper()
	select {
	case <-view.Delivered():
	case <-time.After(2 * time.Second):
		t.Fatal("data never delivered")
	}
}

func TestViewRendersLoadingUntilDelivery(t *testing.T) {
	fetcher := newGatedFetcher()
	view, loop, broadcaster := newTestView(t, fetcher)

	rendered := view.Render()
	if rendered.State != StateLoading {
		t.Fatalf("expected loading before delivery, got %s", rendered.State)
	}
	if !broadcaster.Subscribed("tenant-1|run-slice") {
		t.Fatal("subscription should stay active while pending")
	}

	fetcher.replies <- fetchReply{records: []domain.ActivityRecord{
		{Type: domain.ActivityTypeRun, StartedAt: time.Now(), DurationMillis: 600000, DistanceMeters: 5000},
	}}
	waitDelivered(t, view)
	loop.Do(func() {}) // let the teardown task finish

	rendered = view.Render()
	if rendered.State != StateContent {
		t.Fatalf("expected content after delivery, got %s", rendered.State)
	}
	if rendered.Aggregate == nil || rendered.Aggregate.Duration != "10.00 Minutes" {
		t.Fatalf("unexpected aggregate: %+v", rendered.Aggregate)
	}
	if broadcaster.Subscribed("tenant-1|run-slice") {
		t.Fatal("subscription should be removed after first delivery")
	}
}

func TestViewNeverResubscribes(t *testing.T) {
	fetcher := newGatedFetcher()
	view, loop, broadcaster := newTestView(t, fetcher)

	fetcher.replies <- fetchReply{records: nil}
	waitDelivered(t, view)
	loop.Do(func() {})

	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}

	// Later data-change notifications must not reach the detached view.
	broadcaster.Broadcast()
	broadcaster.Broadcast()
	loop.Do(func() {})

	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("detached view fetched again: %d calls", got)
	}
	if rendered := view.Render(); rendered.State != StateContent {
		t.Fatalf("expected content render, got %s", rendered.State)
	}
}

func TestViewEmptyDeliveryRendersNoDataVariant(t *testing.T) {
	fetcher := newGatedFetcher()
	view, loop, _ := newTestView(t, fetcher)

	fetcher.replies <- fetchReply{records: []domain.ActivityRecord{}}
	waitDelivered(t, view)
	loop.Do(func() {})

	rendered := view.Render()
	if rendered.State != StateContent {
		t.Fatalf("empty delivery still counts as content, got %s", rendered.State)
	}
	if rendered.Header.Subtitle != "No tracked activities" {
		t.Fatalf("unexpected subtitle %q", rendered.Header.Subtitle)
	}
	if rendered.Aggregate != nil {
		t.Fatal("empty delivery should not render an aggregate row")
	}
}

func TestViewRetriesAfterFetchError(t *testing.T) {
	fetcher := newGatedFetcher()
	view, loop, broadcaster := newTestView(t, fetcher)

	fetcher.replies <- fetchReply{err: errors.New("store unavailable")}

	// The failed fetch leaves the view pending with its subscription alive.
	deadline := time.Now().Add(2 * time.Second)
	for fetcher.callCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	loop.Do(func() {})
	if rendered := view.Render(); rendered.State != StateLoading {
		t.Fatalf("fetch error must not surface, got %s", rendered.State)
	}
	if !broadcaster.Subscribed("tenant-1|run-slice") {
		t.Fatal("subscription should survive a failed fetch")
	}

	// The next change notification retries the fetch. Broadcast until the
	// retry lands; a notification racing the failed fetch is dropped.
	fetcher.replies <- fetchReply{records: []domain.ActivityRecord{{Type: domain.ActivityTypeRun}}}
	retryDeadline := time.Now().Add(2 * time.Second)
	for {
		broadcaster.Broadcast()
		select {
		case <-view.Delivered():
		case <-time.After(10 * time.Millisecond):
			if time.Now().Before(retryDeadline) {
				continue
			}
			t.Fatal("retry never delivered")
		}
		break
	}
	loop.Do(func() {})

	if rendered := view.Render(); rendered.State != StateContent {
		t.Fatalf("expected content after retry, got %s", rendered.State)
	}
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
