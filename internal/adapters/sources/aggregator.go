package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/logger"
	"github.com/veridex/veridex/pkg/metrics"
)

// Default aggregator configuration constants.
const (
	defaultCallTimeout  = 10 * time.Second
	defaultHistoryDepth = 10
)

// Aggregator fans out to the four source readers concurrently and assembles
// an EvaluationContext, isolating per-source failures. Only a stats failure
// aborts the whole collection.
type Aggregator struct {
	stats   StatsReader
	ratings RatingsReader
	cards   ModelCardReader
	bench   BenchmarkReader
	history HistoryReader // optional

	callTimeout  time.Duration
	historyDepth int
	logger       logger.Logger
}

// AggregatorOption applies a configuration option to the Aggregator.
type AggregatorOption func(*Aggregator)

// WithCallTimeout bounds each individual source read.
func WithCallTimeout(timeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.callTimeout = timeout
		}
	}
}

// WithHistory wires a snapshot reader for trend context.
func WithHistory(history HistoryReader) AggregatorOption {
	return func(a *Aggregator) {
		a.history = history
	}
}

// WithHistoryDepth sets how many recent snapshots to carry.
func WithHistoryDepth(depth int) AggregatorOption {
	return func(a *Aggregator) {
		if depth > 0 {
			a.historyDepth = depth
		}
	}
}

// WithAggregatorLogger sets a custom logger for the aggregator.
func WithAggregatorLogger(l logger.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an aggregator over the given readers.
func NewAggregator(stats StatsReader, ratings RatingsReader, cards ModelCardReader, bench BenchmarkReader, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		stats:        stats,
		ratings:      ratings,
		cards:        cards,
		bench:        bench,
		callTimeout:  defaultCallTimeout,
		historyDepth: defaultHistoryDepth,
		logger:       logger.Get().Named("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect issues the four source reads in parallel and joins them into an
// EvaluationContext. Ratings degrade to an empty list and card/benchmark to
// nil on failure; a stats failure fails the collection.
func (a *Aggregator) Collect(ctx context.Context, subject string) (model.EvaluationContext, error) {
	var (
		wg sync.WaitGroup

		stats    model.AggregateStats
		statsErr error

		ratings    []model.RatingEvent
		ratingsErr error

		card    *model.ModelCard
		cardErr error

		bench    *model.Benchmark
		benchErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		stats, statsErr = readSource(ctx, a.callTimeout, "stats", func(ctx context.Context) (model.AggregateStats, error) {
			return a.stats.Stats(ctx, subject)
		})
	}()
	go func() {
		defer wg.Done()
		ratings, ratingsErr = readSource(ctx, a.callTimeout, "ratings", func(ctx context.Context) ([]model.RatingEvent, error) {
			return a.ratings.Ratings(ctx, subject)
		})
	}()
	go func() {
		defer wg.Done()
		card, cardErr = readSource(ctx, a.callTimeout, "model_card", func(ctx context.Context) (*model.ModelCard, error) {
			return a.cards.ModelCard(ctx, subject)
		})
	}()
	go func() {
		defer wg.Done()
		bench, benchErr = readSource(ctx, a.callTimeout, "benchmark", func(ctx context.Context) (*model.Benchmark, error) {
			return a.bench.Benchmark(ctx, subject)
		})
	}()
	wg.Wait()

	if statsErr != nil {
		return model.EvaluationContext{}, fmt.Errorf("%w: %w", ErrStatsUnavailable, statsErr)
	}

	ec := model.EvaluationContext{
		Subject: subject,
		Stats:   stats,
		Ratings: []model.RatingEvent{},
	}
	if ratingsErr != nil {
		a.logger.Warn(ctx, "ratings reader failed, continuing with empty list",
			logger.String("subject", subject), logger.Error(ratingsErr))
	} else if ratings != nil {
		ec.Ratings = ratings
	}
	if cardErr != nil {
		a.logger.Warn(ctx, "model card reader failed, continuing without card",
			logger.String("subject", subject), logger.Error(cardErr))
	} else {
		ec.ModelCard = card
	}
	if benchErr != nil {
		a.logger.Warn(ctx, "benchmark reader failed, continuing without benchmark",
			logger.String("subject", subject), logger.Error(benchErr))
	} else {
		ec.Benchmark = bench
	}

	if a.history != nil {
		snapshots, err := a.history.RecentSnapshots(ctx, subject, a.historyDepth)
		if err != nil {
			a.logger.Warn(ctx, "snapshot history unavailable",
				logger.String("subject", subject), logger.Error(err))
		} else {
			ec.Historical = snapshots
		}
	}

	return ec, nil
}

// readSource runs one bounded source read and records its outcome.
func readSource[T any](ctx context.Context, timeout time.Duration, name string, read func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := read(callCtx)
	metrics.RecordSourceLatency(name, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSourceError(name)
	}
	return out, err
}
