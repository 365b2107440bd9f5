package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/metrics"
)

const defaultCacheTTL = 24 * time.Hour

// MemoryStore is the in-process Store. Insights and snapshots accumulate
// newest-first per subject; the cache holds at most one live entry per
// (subject, task type) pair and expires lazily at read time.
type MemoryStore struct {
	mu        sync.RWMutex
	insights  map[string][]model.TrustInsight
	snapshots map[string][]model.TrustSnapshot
	cache     map[string]model.CacheEntry

	ttl time.Duration
	now func() time.Time
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL overrides the cache lifetime.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		insights:  make(map[string][]model.TrustInsight),
		snapshots: make(map[string][]model.TrustSnapshot),
		cache:     make(map[string]model.CacheEntry),
		ttl:       defaultCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(subject, taskType string) string { return subject + "|" + taskType }

// RecordInsight appends one insight for its subject. Insights are never
// updated or removed.
func (s *MemoryStore) RecordInsight(_ context.Context, insight model.TrustInsight) error {
	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.insights[insight.Subject] = append([]model.TrustInsight{insight}, s.insights[insight.Subject]...)
	tracked := len(s.insights)
	s.mu.Unlock()

	metrics.RecordInsightRecorded()
	metrics.UpdateSubjectsTracked(tracked)
	return nil
}

// RecordSnapshot appends one stats snapshot for its subject.
func (s *MemoryStore) RecordSnapshot(_ context.Context, snapshot model.TrustSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	s.snapshots[snapshot.Subject] = append([]model.TrustSnapshot{snapshot}, s.snapshots[snapshot.Subject]...)
	s.mu.Unlock()
	return nil
}

// UpsertCache replaces the cache entry for (subject, taskType) and restarts
// its TTL.
func (s *MemoryStore) UpsertCache(_ context.Context, subject, taskType string, payload model.CachePayload) error {
	now := s.now().UTC()
	entry := model.CacheEntry{
		Subject:        subject,
		TaskType:       taskType,
		EvaluationType: EvaluationType,
		Payload:        payload,
		CacheExpiry:    now.Add(s.ttl),
		CreatedAt:      now,
	}

	s.mu.Lock()
	s.cache[cacheKey(subject, taskType)] = entry
	s.mu.Unlock()
	return nil
}

// LookupCache returns the live cache entry for (subject, taskType).
// Expired entries count as absent.
func (s *MemoryStore) LookupCache(_ context.Context, subject, taskType string) (model.CacheEntry, error) {
	s.mu.RLock()
	entry, ok := s.cache[cacheKey(subject, taskType)]
	s.mu.RUnlock()

	if !ok || !entry.CacheExpiry.After(s.now()) {
		metrics.RecordCacheMiss()
		return model.CacheEntry{}, ErrNotFound
	}
	metrics.RecordCacheHit()
	return entry, nil
}

// LatestInsight returns the most recent insight for a subject.
func (s *MemoryStore) LatestInsight(_ context.Context, subject string) (model.TrustInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.insights[subject]
	if len(history) == 0 {
		return model.TrustInsight{}, ErrNotFound
	}
	return history[0], nil
}

// InsightHistory returns up to limit insights for a subject, newest first.
func (s *MemoryStore) InsightHistory(_ context.Context, subject string, limit int) ([]model.TrustInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.insights[subject]
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	out := make([]model.TrustInsight, len(history))
	copy(out, history)
	return out, nil
}

// RecentSnapshots returns up to limit snapshots for a subject, newest first.
func (s *MemoryStore) RecentSnapshots(_ context.Context, subject string, limit int) ([]model.TrustSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.snapshots[subject]
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	out := make([]model.TrustSnapshot, len(history))
	copy(out, history)
	return out, nil
}

// TopBySubjectScore returns live cache entries ordered by trust score,
// highest first, ties broken by subject for a stable order. An empty
// taskType ranks across all partitions.
func (s *MemoryStore) TopBySubjectScore(_ context.Context, taskType string, limit int) ([]model.CacheEntry, error) {
	entries := s.liveEntries()
	if taskType != "" {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.TaskType == taskType {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Payload.TrustScore != entries[j].Payload.TrustScore {
			return entries[i].Payload.TrustScore > entries[j].Payload.TrustScore
		}
		return entries[i].Subject < entries[j].Subject
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// SearchByMinAccuracy returns live entries for a task type whose measured
// accuracy meets the floor. Entries without a measurement never match.
func (s *MemoryStore) SearchByMinAccuracy(_ context.Context, taskType string, minAccuracy float64, limit int) ([]model.CacheEntry, error) {
	matched := make([]model.CacheEntry, 0)
	for _, entry := range s.liveEntries() {
		if entry.TaskType != taskType {
			continue
		}
		if entry.Payload.MeasuredAccuracy == nil || *entry.Payload.MeasuredAccuracy < minAccuracy {
			continue
		}
		matched = append(matched, entry)
	}
	sort.Slice(matched, func(i, j int) bool {
		return *matched[i].Payload.MeasuredAccuracy > *matched[j].Payload.MeasuredAccuracy
	})
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Counts implements Store.
func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Counts{Subjects: len(s.insights)}
	for _, history := range s.insights {
		c.Insights += len(history)
	}
	for _, history := range s.snapshots {
		c.Snapshots += len(history)
	}
	now := s.now()
	for _, entry := range s.cache {
		if entry.CacheExpiry.After(now) {
			c.Cached++
		}
	}
	return c, nil
}

// liveEntries snapshots the unexpired cache entries.
func (s *MemoryStore) liveEntries() []model.CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	entries := make([]model.CacheEntry, 0, len(s.cache))
	for _, entry := range s.cache {
		if entry.CacheExpiry.After(now) {
			entries = append(entries, entry)
		}
	}
	return entries
}
