// Package queue implements the debounced evaluation job queue.
package queue

import (
	"context"
	"time"

	"github.com/veridex/veridex/pkg/logger"
)

// Option applies a configuration option to the JobQueue.
type Option func(*JobQueue)

// WithCapacity sets the maximum number of pending jobs.
func WithCapacity(capacity int) Option {
	return func(q *JobQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithInterJobDelay sets the pause between two drained jobs. Zero disables
// the pause; tests use that.
func WithInterJobDelay(delay time.Duration) Option {
	return func(q *JobQueue) {
		if delay >= 0 {
			q.delay = delay
		}
	}
}

// WithBaseContext sets the context the drain loop runs jobs under.
func WithBaseContext(ctx context.Context) Option {
	return func(q *JobQueue) {
		if ctx != nil {
			q.baseCtx = ctx
		}
	}
}

// WithNow sets the clock used for enqueue timestamps.
func WithNow(now func() time.Time) Option {
	return func(q *JobQueue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithLogger sets a custom logger for the queue.
func WithLogger(l logger.Logger) Option {
	return func(q *JobQueue) {
		if l != nil {
			q.logger = l
		}
	}
}
