// Package redteam adapts the external security prober that runs adversarial
// probes against a hosted model.
package redteam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/metrics"
)

const defaultProbeTimeout = 60 * time.Second

// Prober requests an adversarial assessment of a subject.
type Prober interface {
	Probe(ctx context.Context, ec model.EvaluationContext) (*model.RedTeamReport, error)
}

// Client is an HTTP Prober against the security prober service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a prober client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// probeRequest is the prober's assessment input. Name is the bare model
// name, the part of the subject after the owner.
type probeRequest struct {
	Subject            string              `json:"subject"`
	Name               string              `json:"name"`
	ModelCard          *model.ModelCard    `json:"model_card,omitempty"`
	Ratings            []model.RatingEvent `json:"ratings"`
	BaselineTrustScore float64             `json:"baseline_trust_score"`
}

func modelName(subject string) string {
	if i := strings.LastIndex(subject, "/"); i >= 0 {
		return subject[i+1:]
	}
	return subject
}

// Probe implements Prober. The caller decides how to degrade when the
// prober is unreachable; this client only reports the failure.
func (c *Client) Probe(ctx context.Context, ec model.EvaluationContext) (*model.RedTeamReport, error) {
	body, err := json.Marshal(probeRequest{
		Subject:            ec.Subject,
		Name:               modelName(ec.Subject),
		ModelCard:          ec.ModelCard,
		Ratings:            ec.Ratings,
		BaselineTrustScore: ec.Stats.TrustScore,
	})
	if err != nil {
		return nil, fmt.Errorf("encode probe request: %w", err)
	}

	url := c.baseURL + "/api/v1/probe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProberError()
		return nil, fmt.Errorf("probe %s: %w", ec.Subject, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		metrics.RecordProberError()
		return nil, fmt.Errorf("%w: status %d from %s", ErrProbeFailed, resp.StatusCode, url)
	}

	var report model.RedTeamReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		metrics.RecordProberError()
		return nil, fmt.Errorf("decode probe report: %w", err)
	}
	return &report, nil
}
