// Package chain adapts on-chain rating and trust events into evaluation jobs.
package chain

import "context"

// EventType identifies the four contract event shapes the watcher consumes.
type EventType string

const (
	EventRatingSubmitted   EventType = "rating_submitted"
	EventRatingUpdated     EventType = "rating_updated"
	EventRatingSlashed     EventType = "rating_slashed"
	EventTrustScoreUpdated EventType = "trust_score_updated"
)

// Event is one normalized contract event. Slug is only populated on event
// shapes that carry it on-chain (RatingSubmitted); the rest identify the
// subject numerically and go through a Resolver.
type Event struct {
	Type         EventType
	SubjectID    uint64
	Slug         string
	User         string
	Score        float64
	NewScore     float64
	MetadataHash string
	RatingIndex  int
}

// Source supplies the stream of contract events. Connecting to a node or an
// indexer websocket is the collaborator's concern; the watcher only consumes
// the channel, which the source closes when the subscription ends.
type Source interface {
	// Subscribe starts delivery and returns the event channel.
	Subscribe(ctx context.Context) (<-chan Event, error)

	// Unsubscribe tears the stream down. Safe to call more than once.
	Unsubscribe() error
}

// Enqueuer accepts evaluation requests produced by the watcher.
type Enqueuer interface {
	Enqueue(ctx context.Context, subject, reason string) bool
}
