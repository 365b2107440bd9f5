package queue

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// recordingRunner captures executed jobs and can block or fail on demand.
type recordingRunner struct {
	mu      sync.Mutex
	jobs    []model.Job
	block   chan struct{} // when non-nil, RunEvaluation waits on it
	failFor map[string]error
	panicOn string
}

func (r *recordingRunner) RunEvaluation(_ context.Context, job model.Job) error {
	if r.block != nil {
		<-r.block
	}
	if job.Subject == r.panicOn {
		panic("boom")
	}
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
	if err, ok := r.failFor[job.Subject]; ok {
		return err
	}
	return nil
}

func (r *recordingRunner) executed() []model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Job, len(r.jobs))
	copy(out, r.jobs)
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

func TestJobQueue_Debounce(t *testing.T) {
	runner := &recordingRunner{block: make(chan struct{})}
	q := New(runner, WithInterJobDelay(0))
	ctx := context.Background()

	// First job for another subject keeps the drain loop busy so the
	// debounced subject stays queued.
	if !q.Enqueue(ctx, "blocker/model", "chain_event") {
		t.Fatal("expected first enqueue to succeed")
	}
	if !q.Enqueue(ctx, "acme/model", "rating_submitted") {
		t.Fatal("expected enqueue for new subject to succeed")
	}
	if q.Enqueue(ctx, "acme/model", "rating_updated") {
		t.Error("expected duplicate subject to be debounced")
	}
	if q.Enqueue(ctx, "acme/model", "trust_score_updated") {
		t.Error("expected duplicate subject to be debounced")
	}

	close(runner.block)
	waitFor(t, func() bool { return len(runner.executed()) == 2 })

	jobs := runner.executed()
	if jobs[1].Subject != "acme/model" || jobs[1].Reason != "rating_submitted" {
		t.Errorf("first request should win: got %+v", jobs[1])
	}
}

func TestJobQueue_FIFOOrdering(t *testing.T) {
	runner := &recordingRunner{block: make(chan struct{})}
	q := New(runner, WithInterJobDelay(0))
	ctx := context.Background()

	subjects := []string{"a/one", "b/two", "c/three", "d/four"}
	for _, s := range subjects {
		if !q.Enqueue(ctx, s, "chain_event") {
			t.Fatalf("enqueue %s failed", s)
		}
	}
	close(runner.block)
	waitFor(t, func() bool { return len(runner.executed()) == len(subjects) })

	for i, job := range runner.executed() {
		if job.Subject != subjects[i] {
			t.Errorf("position %d: want %s, got %s", i, subjects[i], job.Subject)
		}
	}
}

func TestJobQueue_FailedJobDiscardedLoopContinues(t *testing.T) {
	runner := &recordingRunner{
		failFor: map[string]error{"bad/model": errors.New("stats reader down")},
	}
	q := New(runner, WithInterJobDelay(0))
	ctx := context.Background()

	q.Enqueue(ctx, "bad/model", "chain_event")
	q.Enqueue(ctx, "good/model", "chain_event")

	waitFor(t, func() bool { return len(runner.executed()) == 2 })
	waitFor(t, func() bool { return !q.Status().ProcessingQueue })

	// The failed subject is no longer pending; a new trigger re-enqueues it.
	if !q.Enqueue(ctx, "bad/model", "manual_request") {
		t.Error("expected failed subject to be enqueueable again")
	}
}

func TestJobQueue_PanicIsContained(t *testing.T) {
	runner := &recordingRunner{panicOn: "explosive/model"}
	q := New(runner, WithInterJobDelay(0))
	ctx := context.Background()

	q.Enqueue(ctx, "explosive/model", "chain_event")
	q.Enqueue(ctx, "calm/model", "chain_event")

	waitFor(t, func() bool {
		jobs := runner.executed()
		return len(jobs) == 1 && jobs[0].Subject == "calm/model"
	})
}

func TestJobQueue_Status(t *testing.T) {
	runner := &recordingRunner{block: make(chan struct{})}
	q := New(runner, WithInterJobDelay(0))
	ctx := context.Background()

	st := q.Status()
	if st.QueueLength != 0 || st.ProcessingQueue {
		t.Errorf("fresh queue should be idle, got %+v", st)
	}

	q.Enqueue(ctx, "a/one", "chain_event")
	q.Enqueue(ctx, "b/two", "chain_event")

	st = q.Status()
	if !st.ProcessingQueue {
		t.Error("expected queue to report processing")
	}

	close(runner.block)
	waitFor(t, func() bool {
		st := q.Status()
		return st.QueueLength == 0 && !st.ProcessingQueue
	})
}

func TestJobQueue_Close(t *testing.T) {
	runner := &recordingRunner{}
	q := New(runner, WithInterJobDelay(0))
	ctx := context.Background()

	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if q.Enqueue(ctx, "late/model", "chain_event") {
		t.Error("closed queue must reject new jobs")
	}
}
