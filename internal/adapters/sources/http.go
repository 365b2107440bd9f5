package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veridex/veridex/internal/domain/model"
)

const defaultHTTPTimeout = 10 * time.Second

// IndexerClient reads on-chain aggregates and ratings from the chain
// indexer's REST API.
type IndexerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewIndexerClient creates an indexer-backed stats and ratings reader.
func NewIndexerClient(baseURL string, timeout time.Duration) *IndexerClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &IndexerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Stats implements StatsReader.
func (c *IndexerClient) Stats(ctx context.Context, subject string) (model.AggregateStats, error) {
	var stats model.AggregateStats
	err := getJSON(ctx, c.httpClient, c.baseURL+"/subjects/"+subject+"/stats", &stats)
	return stats, err
}

// Ratings implements RatingsReader.
func (c *IndexerClient) Ratings(ctx context.Context, subject string) ([]model.RatingEvent, error) {
	var ratings []model.RatingEvent
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/subjects/"+subject+"/ratings", &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

// RegistryClient reads model cards and benchmark results from the model
// registry's REST API.
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRegistryClient creates a registry-backed card and benchmark reader.
func NewRegistryClient(baseURL string, timeout time.Duration) *RegistryClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &RegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ModelCard implements ModelCardReader. A subject without a published card
// yields nil, not an error.
func (c *RegistryClient) ModelCard(ctx context.Context, subject string) (*model.ModelCard, error) {
	var card model.ModelCard
	err := getJSON(ctx, c.httpClient, c.baseURL+"/api/models/"+subject, &card)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Benchmark implements BenchmarkReader. Missing benchmarks yield nil.
func (c *RegistryClient) Benchmark(ctx context.Context, subject string) (*model.Benchmark, error) {
	var bench model.Benchmark
	err := getJSON(ctx, c.httpClient, c.baseURL+"/api/models/"+subject+"/benchmark", &bench)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bench, nil
}

// statusError carries a non-2xx response status for isNotFound checks.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected response status %d from %s", e.code, e.url)
}

func (e *statusError) Is(target error) bool { return target == ErrBadStatus }

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// getJSON performs one GET and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &statusError{code: resp.StatusCode, url: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, url, err)
	}
	return nil
}
