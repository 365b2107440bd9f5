package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/veridex/veridex/pkg/logger"
	"github.com/veridex/veridex/pkg/metrics"
)

// Watcher subscribes to contract events and turns each resolvable one into
// an evaluation request. It has no side effects beyond the Enqueuer.
type Watcher struct {
	source   Source
	queue    Enqueuer
	resolver Resolver

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}

	logger logger.Logger
}

// WatcherOption applies a configuration option to the Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets a custom logger for the watcher.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher over the given source, resolver and queue.
func NewWatcher(source Source, resolver Resolver, queue Enqueuer, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:   source,
		queue:    queue,
		resolver: resolver,
		logger:   logger.Get().Named("watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the subscription. Calling it while already active is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active {
		w.logger.Debug(ctx, "watcher already active, start ignored")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	events, err := w.source.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}

	w.active = true
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(runCtx, events)

	w.logger.Info(ctx, "chain event watcher started")
	return nil
}

// Stop unsubscribes and waits for the event loop to exit. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return
	}
	w.active = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if err := w.source.Unsubscribe(); err != nil {
		w.logger.Warn(context.Background(), "unsubscribe failed", logger.Error(err))
	}
	cancel()
	<-done
}

// Active reports whether the watcher currently listens for events.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *Watcher) run(ctx context.Context, events <-chan Event) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				w.logger.Info(ctx, "event stream closed")
				w.mu.Lock()
				w.active = false
				w.mu.Unlock()
				return
			}
			w.handle(ctx, ev)
		}
	}
}

// handle normalizes one event into (subject, reason) and enqueues it.
// Events whose subject cannot be resolved are dropped with a warning; the
// watcher itself never fails on a bad event.
func (w *Watcher) handle(ctx context.Context, ev Event) {
	metrics.RecordChainEvent(string(ev.Type))

	subject := ev.Slug
	if subject != "" {
		w.resolver.Learn(ctx, ev.SubjectID, subject)
	} else {
		resolved, ok := w.resolver.Resolve(ctx, ev.SubjectID)
		if !ok {
			metrics.RecordChainEventDropped()
			w.logger.Warn(ctx, "dropping event for unresolvable subject",
				logger.String("type", string(ev.Type)),
				logger.Any("subject_id", ev.SubjectID),
			)
			return
		}
		subject = resolved
	}

	w.queue.Enqueue(ctx, subject, string(ev.Type))
}
