// Package sources defines the source reader contracts the pipeline consumes
// and the aggregator that fans out over them.
package sources

import (
	"context"

	"github.com/veridex/veridex/internal/domain/model"
)

// StatsReader serves the on-chain aggregate for a subject. Stats are
// load-bearing for every downstream computation, so a failure here is fatal
// to the evaluation.
type StatsReader interface {
	Stats(ctx context.Context, subject string) (model.AggregateStats, error)
}

// RatingsReader serves the subject's individual on-chain ratings.
type RatingsReader interface {
	Ratings(ctx context.Context, subject string) ([]model.RatingEvent, error)
}

// ModelCardReader serves the subject's self-reported metadata.
type ModelCardReader interface {
	ModelCard(ctx context.Context, subject string) (*model.ModelCard, error)
}

// BenchmarkReader serves independently measured benchmark results.
type BenchmarkReader interface {
	Benchmark(ctx context.Context, subject string) (*model.Benchmark, error)
}

// HistoryReader serves recent trust snapshots for trend context. Optional;
// a nil reader yields an empty history.
type HistoryReader interface {
	RecentSnapshots(ctx context.Context, subject string, limit int) ([]model.TrustSnapshot, error)
}
