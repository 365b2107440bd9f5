package chain

import (
	"context"
	"sync"
)

// Resolver maps an on-chain numeric subject identifier to its slug.
type Resolver interface {
	// Resolve returns the slug for id, or false when unknown.
	Resolve(ctx context.Context, id uint64) (string, bool)

	// Learn records an id->slug association observed on an event that
	// carried both.
	Learn(ctx context.Context, id uint64, slug string)
}

// SlugIndex is an in-memory Resolver fed by RatingSubmitted events, which
// are the only shape that carries the slug on-chain. Identifiers never seen
// on such an event stay unresolvable and their events are dropped.
type SlugIndex struct {
	mu    sync.RWMutex
	slugs map[uint64]string
}

// NewSlugIndex creates an empty index.
func NewSlugIndex() *SlugIndex {
	return &SlugIndex{slugs: make(map[uint64]string)}
}

// Resolve returns the slug recorded for id.
func (s *SlugIndex) Resolve(_ context.Context, id uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slug, ok := s.slugs[id]
	return slug, ok
}

// Learn records an id->slug association. Last association wins.
func (s *SlugIndex) Learn(_ context.Context, id uint64, slug string) {
	if slug == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slugs[id] = slug
}

// Size returns the number of known identifiers.
func (s *SlugIndex) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slugs)
}
