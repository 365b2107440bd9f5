// Package repository persists evaluation results: append-only insights and
// snapshots plus a TTL-bounded read cache.
package repository

import (
	"context"

	"github.com/veridex/veridex/internal/domain/model"
)

// EvaluationType marks how a cached result was produced. Only automated
// evaluations exist today.
const EvaluationType = "automated"

// Counts summarizes the store for status reporting.
type Counts struct {
	Subjects  int `json:"subjects"`
	Insights  int `json:"insights"`
	Snapshots int `json:"snapshots"`
	Cached    int `json:"cached"`
}

// Store is the persistence boundary for the evaluation pipeline. Insights
// and snapshots are append-only; only cache entries are ever replaced.
type Store interface {
	RecordInsight(ctx context.Context, insight model.TrustInsight) error
	RecordSnapshot(ctx context.Context, snapshot model.TrustSnapshot) error
	UpsertCache(ctx context.Context, subject, taskType string, payload model.CachePayload) error

	LookupCache(ctx context.Context, subject, taskType string) (model.CacheEntry, error)
	LatestInsight(ctx context.Context, subject string) (model.TrustInsight, error)
	InsightHistory(ctx context.Context, subject string, limit int) ([]model.TrustInsight, error)
	RecentSnapshots(ctx context.Context, subject string, limit int) ([]model.TrustSnapshot, error)
	TopBySubjectScore(ctx context.Context, taskType string, limit int) ([]model.CacheEntry, error)
	SearchByMinAccuracy(ctx context.Context, taskType string, minAccuracy float64, limit int) ([]model.CacheEntry, error)
	Counts(ctx context.Context) (Counts, error)
}
