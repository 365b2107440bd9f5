// Package queue implements the debounced evaluation job queue.
//
// One queue owns all pending jobs and a single drain loop; enqueue and drain
// are its only mutators. Jobs for a subject that is already pending are
// discarded (first request wins until the job is popped), and the drain loop
// runs jobs strictly in enqueue order with a fixed pause between them.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/logger"
	"github.com/veridex/veridex/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity      = 10_000
	defaultInterJobDelay = 2 * time.Second
)

// Runner executes one evaluation job. A returned error discards the job;
// there is no retry.
type Runner interface {
	RunEvaluation(ctx context.Context, job model.Job) error
}

// Status is an observability snapshot of the queue.
type Status struct {
	QueueLength     int  `json:"queue_length"`
	ProcessingQueue bool `json:"processing_queue"`
}

// JobQueue is the single-consumer, debounced FIFO driving the pipeline.
type JobQueue struct {
	mu       sync.Mutex
	jobs     []model.Job
	pending  *pendingSet
	draining bool
	closed   bool

	capacity int
	delay    time.Duration
	runner   Runner
	now      func() time.Time
	baseCtx  context.Context
	logger   logger.Logger
}

// New creates a job queue around the given runner.
func New(runner Runner, opts ...Option) *JobQueue {
	q := &JobQueue{
		pending:  newPendingSet(),
		capacity: defaultCapacity,
		delay:    defaultInterJobDelay,
		runner:   runner,
		now:      time.Now,
		baseCtx:  context.Background(),
		logger:   logger.Get().Named("queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a job for subject unless one is already pending.
// Returns false when the request was debounced, the queue is full, or the
// queue is closed. Starts the drain loop if it is not running.
func (q *JobQueue) Enqueue(ctx context.Context, subject, reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.pending.has(subject) {
		metrics.RecordJobDebounced()
		q.logger.Debug(ctx, "evaluation already pending, request discarded",
			logger.String("subject", subject),
			logger.String("reason", reason),
		)
		return false
	}
	if len(q.jobs) >= q.capacity {
		q.logger.Warn(ctx, "job queue full, request discarded",
			logger.String("subject", subject),
			logger.Int("capacity", q.capacity),
		)
		return false
	}

	q.pending.add(subject)
	q.jobs = append(q.jobs, model.Job{Subject: subject, Reason: reason, EnqueuedAt: q.now()})
	metrics.RecordJobEnqueued()
	metrics.UpdateQueueDepth(len(q.jobs))

	if !q.draining {
		q.draining = true
		go q.drain()
	}
	return true
}

// Status returns the current queue snapshot.
func (q *JobQueue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{QueueLength: len(q.jobs), ProcessingQueue: q.draining}
}

// Close stops accepting new jobs. Jobs already queued still drain; the job
// currently running is never interrupted.
func (q *JobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// drain pops jobs one at a time until the queue is empty, pausing between
// jobs. Exactly one drain loop runs at any moment.
func (q *JobQueue) drain() {
	ctx := q.baseCtx
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 || ctx.Err() != nil {
			q.draining = false
			q.mu.Unlock()
			metrics.UpdateQueueDepth(0)
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.pending.remove(job.Subject)
		depth := len(q.jobs)
		q.mu.Unlock()
		metrics.UpdateQueueDepth(depth)

		start := q.now()
		if err := q.runJob(ctx, job); err != nil {
			metrics.RecordJobFailed()
			q.logger.Error(ctx, "evaluation job failed, discarding",
				logger.String("subject", job.Subject),
				logger.String("reason", job.Reason),
				logger.Error(err),
			)
		} else {
			metrics.RecordJobCompleted()
		}
		metrics.RecordJobDuration(float64(q.now().Sub(start).Milliseconds()))

		if q.delay > 0 {
			select {
			case <-time.After(q.delay):
			case <-ctx.Done():
			}
		}
	}
}

// runJob shields the drain loop from a panicking pipeline; a panic is
// converted to an error and the job is discarded like any other failure.
func (q *JobQueue) runJob(ctx context.Context, job model.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return q.runner.RunEvaluation(ctx, job)
}
