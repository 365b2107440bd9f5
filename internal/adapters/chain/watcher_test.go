package chain

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/veridex/veridex/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// fakeSource delivers a fixed stream of events over a channel.
type fakeSource struct {
	mu            sync.Mutex
	ch            chan Event
	subscriptions int
	unsubscribes  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan Event, 16)}
}

func (s *fakeSource) Subscribe(_ context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions++
	return s.ch, nil
}

func (s *fakeSource) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribes++
	return nil
}

func (s *fakeSource) subscribeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptions
}

// fakeQueue records enqueued (subject, reason) pairs.
type fakeQueue struct {
	mu       sync.Mutex
	requests [][2]string
}

func (q *fakeQueue) Enqueue(_ context.Context, subject, reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requests = append(q.requests, [2]string{subject, reason})
	return true
}

func (q *fakeQueue) all() [][2]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][2]string, len(q.requests))
	copy(out, q.requests)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_StartIsIdempotent(t *testing.T) {
	source := newFakeSource()
	w := NewWatcher(source, NewSlugIndex(), &fakeQueue{})
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if got := source.subscribeCount(); got != 1 {
		t.Errorf("expected one subscription, got %d", got)
	}

	w.Stop()
	w.Stop() // idempotent
	if w.Active() {
		t.Error("watcher should be inactive after stop")
	}
}

func TestWatcher_EnqueuesResolvableEvents(t *testing.T) {
	source := newFakeSource()
	queue := &fakeQueue{}
	w := NewWatcher(source, NewSlugIndex(), queue)
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer w.Stop()

	// RatingSubmitted carries the slug and teaches the resolver.
	source.ch <- Event{Type: EventRatingSubmitted, SubjectID: 7, Slug: "acme/sentiment-v2", User: "0xa1", Score: 4}
	// Later shapes identify the subject numerically.
	source.ch <- Event{Type: EventRatingSlashed, SubjectID: 7, RatingIndex: 0}
	source.ch <- Event{Type: EventTrustScoreUpdated, SubjectID: 7, NewScore: 61}

	waitFor(t, func() bool { return len(queue.all()) == 3 })

	want := [][2]string{
		{"acme/sentiment-v2", "rating_submitted"},
		{"acme/sentiment-v2", "rating_slashed"},
		{"acme/sentiment-v2", "trust_score_updated"},
	}
	got := queue.all()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d: want %v, got %v", i, want[i], got[i])
		}
	}
}

func TestWatcher_DropsUnresolvableEvents(t *testing.T) {
	source := newFakeSource()
	queue := &fakeQueue{}
	w := NewWatcher(source, NewSlugIndex(), queue)
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer w.Stop()

	// Identifier 99 was never seen with a slug, so the event is dropped.
	source.ch <- Event{Type: EventRatingUpdated, SubjectID: 99, User: "0xa1", NewScore: 2}
	// A resolvable event after it still flows.
	source.ch <- Event{Type: EventRatingSubmitted, SubjectID: 5, Slug: "beta/ocr", User: "0xa2", Score: 3}

	waitFor(t, func() bool { return len(queue.all()) == 1 })
	if got := queue.all()[0]; got != [2]string{"beta/ocr", "rating_submitted"} {
		t.Errorf("unexpected request: %v", got)
	}
}

func TestSlugIndex(t *testing.T) {
	idx := NewSlugIndex()
	ctx := context.Background()

	if _, ok := idx.Resolve(ctx, 1); ok {
		t.Error("empty index should not resolve")
	}
	idx.Learn(ctx, 1, "acme/a")
	idx.Learn(ctx, 1, "acme/b") // last association wins
	idx.Learn(ctx, 2, "")       // empty slug ignored

	if slug, ok := idx.Resolve(ctx, 1); !ok || slug != "acme/b" {
		t.Errorf("want acme/b, got %q (%v)", slug, ok)
	}
	if idx.Size() != 1 {
		t.Errorf("want size 1, got %d", idx.Size())
	}
}
