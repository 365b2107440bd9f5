package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/veridex/veridex/pkg/logger"
)

// Polling defaults.
const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 10 * time.Second
	sourceBuffer        = 256
)

// PollingSource is a Source over the indexer's cursor-paged event feed.
// It remembers the last sequence it delivered, so an event is emitted at
// most once per process lifetime.
type PollingSource struct {
	baseURL    string
	httpClient *http.Client
	interval   time.Duration
	logger     logger.Logger

	mu     sync.Mutex
	cursor uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// PollingOption applies a configuration option to the PollingSource.
type PollingOption func(*PollingSource)

// WithPollInterval sets how often the feed is polled.
func WithPollInterval(interval time.Duration) PollingOption {
	return func(p *PollingSource) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithPollTimeout bounds one feed request.
func WithPollTimeout(timeout time.Duration) PollingOption {
	return func(p *PollingSource) {
		if timeout > 0 {
			p.httpClient.Timeout = timeout
		}
	}
}

// NewPollingSource creates a source polling the indexer's /events feed.
func NewPollingSource(baseURL string, opts ...PollingOption) *PollingSource {
	p := &PollingSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultPollTimeout},
		interval:   defaultPollInterval,
		logger:     logger.Get().Named("chain-source"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// feedEvent is one event row from the indexer feed.
type feedEvent struct {
	Sequence     uint64  `json:"sequence"`
	Type         string  `json:"type"`
	SubjectID    uint64  `json:"subject_id"`
	Slug         string  `json:"slug,omitempty"`
	User         string  `json:"user,omitempty"`
	Score        float64 `json:"score,omitempty"`
	NewScore     float64 `json:"new_score,omitempty"`
	MetadataHash string  `json:"metadata_hash,omitempty"`
	RatingIndex  int     `json:"rating_index,omitempty"`
}

// Subscribe implements Source. One subscription per source at a time.
func (p *PollingSource) Subscribe(ctx context.Context) (<-chan Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil, ErrAlreadySubscribed
	}

	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	out := make(chan Event, sourceBuffer)
	go p.poll(pollCtx, out, p.done)
	return out, nil
}

// Unsubscribe implements Source.
func (p *PollingSource) Unsubscribe() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (p *PollingSource) poll(ctx context.Context, out chan<- Event, done chan struct{}) {
	defer close(out)
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := p.fetch(ctx)
			if err != nil {
				p.logger.Warn(ctx, "event feed poll failed", logger.Error(err))
				continue
			}
			for _, fe := range batch {
				select {
				case out <- toEvent(fe):
					p.advance(fe.Sequence)
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (p *PollingSource) advance(sequence uint64) {
	p.mu.Lock()
	if sequence > p.cursor {
		p.cursor = sequence
	}
	p.mu.Unlock()
}

func (p *PollingSource) fetch(ctx context.Context) ([]feedEvent, error) {
	p.mu.Lock()
	cursor := p.cursor
	p.mu.Unlock()

	url := p.baseURL + "/events?after=" + strconv.FormatUint(cursor, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected feed status %d", resp.StatusCode)
	}

	var batch []feedEvent
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return batch, nil
}

func toEvent(fe feedEvent) Event {
	return Event{
		Type:         EventType(fe.Type),
		SubjectID:    fe.SubjectID,
		Slug:         fe.Slug,
		User:         fe.User,
		Score:        fe.Score,
		NewScore:     fe.NewScore,
		MetadataHash: fe.MetadataHash,
		RatingIndex:  fe.RatingIndex,
	}
}
