// Package service provides the core evaluation service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veridex/veridex/internal/adapters/chain"
	jobqueue "github.com/veridex/veridex/internal/adapters/mq/queue"
	"github.com/veridex/veridex/internal/adapters/redteam"
	"github.com/veridex/veridex/internal/adapters/repository"
	"github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/logger"
	"github.com/veridex/veridex/pkg/metrics"
)

const historyDepth = 10

// Detector produces an anomaly report from ratings and aggregate stats.
type Detector interface {
	Detect(ratings []model.RatingEvent, stats model.AggregateStats) model.AnomalyReport
}

// Comparator relates claimed accuracy to measured accuracy.
type Comparator interface {
	Compare(card *model.ModelCard, bench *model.Benchmark) *model.AccuracyComparison
}

// Synthesizer turns a completed evaluation context into a trust insight.
type Synthesizer interface {
	Synthesize(ctx context.Context, ec model.EvaluationContext, report *model.RedTeamReport) model.TrustInsight
}

// Collector assembles the evaluation context for a subject.
type Collector interface {
	Collect(ctx context.Context, subject string) (model.EvaluationContext, error)
}

// Service runs the evaluation pipeline and serves the read API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	collector   Collector
	detector    Detector
	comparator  Comparator
	synthesizer Synthesizer
	prober      redteam.Prober // optional
	queue       *jobqueue.JobQueue
	watcher     *chain.Watcher // optional

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProber wires the adversarial security prober. Probe failures degrade
// the evaluation, they never fail it.
func WithProber(p redteam.Prober) Option {
	return func(s *Service) { s.prober = p }
}

// WithQueueOptions forwards options to the internal job queue.
func WithQueueOptions(opts ...jobqueue.Option) Option {
	return func(s *Service) {
		s.queue = jobqueue.New(s, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates the evaluation service.
func New(store repository.Store, collector Collector, detector Detector, comparator Comparator, synthesizer Synthesizer, opts ...Option) *Service {
	s := &Service{
		store:       store,
		collector:   collector,
		detector:    detector,
		comparator:  comparator,
		synthesizer: synthesizer,
		logger:      logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = jobqueue.New(s)
	}
	return s
}

// AttachWatcher wires the event watcher after construction. The watcher
// needs the service as its enqueuer, so it cannot exist before New returns.
// Must be called before Start.
func (s *Service) AttachWatcher(w *chain.Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.watcher = w
	}
}

// Start brings up the watcher. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
	}
	s.started = true
	s.logger.Info(ctx, "evaluation service started")
	return nil
}

// Stop shuts down the watcher and the queue. Idempotent.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if err := s.queue.Close(); err != nil {
		return fmt.Errorf("close queue: %w", err)
	}
	s.started = false
	s.logger.Info(ctx, "evaluation service stopped")
	return nil
}

// Enqueue implements chain.Enqueuer for event-driven evaluations.
func (s *Service) Enqueue(ctx context.Context, subject, reason string) bool {
	return s.queue.Enqueue(ctx, subject, reason)
}

// RunEvaluation implements jobqueue.Runner: one full pipeline pass for a
// queued job.
func (s *Service) RunEvaluation(ctx context.Context, job model.Job) error {
	_, err := s.evaluate(ctx, job.Subject)
	return err
}

// Evaluate runs the pipeline for a subject right now, bypassing the queue,
// and returns the fresh insight.
func (s *Service) Evaluate(ctx context.Context, subject string) (model.TrustInsight, error) {
	return s.evaluate(ctx, subject)
}

// evaluate is the pipeline: collect, detect, compare, probe, synthesize,
// persist. Only data collection and the insight write can fail it.
func (s *Service) evaluate(ctx context.Context, subject string) (model.TrustInsight, error) {
	start := time.Now()

	ec, err := s.collector.Collect(ctx, subject)
	if err != nil {
		return model.TrustInsight{}, fmt.Errorf("collect %s: %w", subject, err)
	}

	ec.Anomalies = s.detector.Detect(ec.Ratings, ec.Stats)
	ec.AccuracyComparison = s.comparator.Compare(ec.ModelCard, ec.Benchmark)

	if ec.Historical == nil {
		if snapshots, histErr := s.store.RecentSnapshots(ctx, subject, historyDepth); histErr == nil {
			ec.Historical = snapshots
		}
	}

	var report *model.RedTeamReport
	if s.prober != nil {
		report, err = s.prober.Probe(ctx, ec)
		if err != nil {
			s.logger.Warn(ctx, "security probe unavailable, evaluating without it",
				logger.String("subject", subject), logger.Error(err))
			report = nil
		}
	}

	ins := s.synthesizer.Synthesize(ctx, ec, report)

	if err := s.store.RecordInsight(ctx, ins); err != nil {
		return model.TrustInsight{}, fmt.Errorf("record insight for %s: %w", subject, err)
	}

	// Snapshot and cache writes are best effort; the insight is already
	// the durable record.
	if err := s.store.RecordSnapshot(ctx, model.TrustSnapshot{
		Subject:    subject,
		TrustScore: ec.Stats.TrustScore,
		Stats:      ec.Stats,
	}); err != nil {
		s.logger.Warn(ctx, "snapshot write failed", logger.String("subject", subject), logger.Error(err))
	}
	if err := s.store.UpsertCache(ctx, subject, ec.ModelCard.TaskType(), cachePayload(ec, ins)); err != nil {
		s.logger.Warn(ctx, "cache write failed", logger.String("subject", subject), logger.Error(err))
	}

	s.logger.Info(ctx, "evaluation completed",
		logger.String("subject", subject),
		logger.String("risk_level", string(ins.RiskLevel)),
		logger.String("origin", string(ins.Origin)),
		logger.Duration("elapsed", time.Since(start)))
	return ins, nil
}

func cachePayload(ec model.EvaluationContext, ins model.TrustInsight) model.CachePayload {
	payload := model.CachePayload{
		InsightID:  ins.ID,
		TrustScore: ec.Stats.TrustScore,
		RiskLevel:  ins.RiskLevel,
		Veracity:   ins.Veracity,
		Summary:    ins.Summary,
	}
	if ec.Benchmark != nil {
		payload.MeasuredAccuracy = ec.Benchmark.MeasuredAccuracy
	}
	return payload
}

// LatestInsight implements the API read for one subject.
func (s *Service) LatestInsight(ctx context.Context, subject string) (model.TrustInsight, error) {
	ins, err := s.store.LatestInsight(ctx, subject)
	if err != nil {
		return model.TrustInsight{}, fmt.Errorf("latest insight for %s: %w", subject, err)
	}
	return ins, nil
}

// InsightHistory implements the API history read.
func (s *Service) InsightHistory(ctx context.Context, subject string, limit int) ([]model.TrustInsight, error) {
	history, err := s.store.InsightHistory(ctx, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("insight history for %s: %w", subject, err)
	}
	return history, nil
}

// TopSubjects implements the trust ranking read over live cache entries.
func (s *Service) TopSubjects(ctx context.Context, taskType string, limit int) ([]model.CacheEntry, error) {
	entries, err := s.store.TopBySubjectScore(ctx, taskType, limit)
	if err != nil {
		return nil, fmt.Errorf("top subjects: %w", err)
	}
	return entries, nil
}

// SearchModels implements the cached-evaluation search.
func (s *Service) SearchModels(ctx context.Context, taskType string, minAccuracy float64, limit int) ([]model.CacheEntry, error) {
	entries, err := s.store.SearchByMinAccuracy(ctx, taskType, minAccuracy, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", taskType, err)
	}
	return entries, nil
}

// Status implements the operator status read.
func (s *Service) Status(ctx context.Context) model.PipelineStatus {
	qs := s.queue.Status()
	metrics.UpdateQueueDepth(qs.QueueLength)

	status := model.PipelineStatus{
		QueueLength: qs.QueueLength,
		Processing:  qs.ProcessingQueue,
	}
	if s.watcher != nil {
		status.WatcherActive = s.watcher.Active()
	}
	if counts, err := s.store.Counts(ctx); err == nil {
		status.Subjects = counts.Subjects
		status.Insights = counts.Insights
		status.Snapshots = counts.Snapshots
		status.Cached = counts.Cached
	}
	return status
}

// Ensure the service satisfies its consumer contracts.
var (
	_ jobqueue.Runner = (*Service)(nil)
	_ chain.Enqueuer  = (*Service)(nil)
)
