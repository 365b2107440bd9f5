// Package notify delivers best-effort alerts for high-risk findings.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/logger"
	"github.com/veridex/veridex/pkg/metrics"
)

const defaultNotifyTimeout = 5 * time.Second

// Notifier pushes a finding to an external channel. Implementations must
// never let delivery failures surface to the evaluation path.
type Notifier interface {
	NotifyHighRisk(ctx context.Context, insight model.TrustInsight)
}

// Webhook posts insight alerts to a configured URL.
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     logger.Logger
}

// NewWebhook creates a webhook notifier. An empty URL yields a notifier
// that silently drops everything.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: defaultNotifyTimeout},
		logger:     logger.Get().Named("notify"),
	}
}

// alertPayload is the webhook body for one high-risk finding.
type alertPayload struct {
	Event     string          `json:"event"`
	Subject   string          `json:"subject"`
	RiskLevel model.RiskLevel `json:"risk_level"`
	Veracity  model.Veracity  `json:"veracity"`
	Summary   string          `json:"summary"`
	InsightID string          `json:"insight_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// NotifyHighRisk implements Notifier. Failures are logged and counted,
// never returned.
func (w *Webhook) NotifyHighRisk(ctx context.Context, insight model.TrustInsight) {
	if w.url == "" {
		return
	}

	body, err := json.Marshal(alertPayload{
		Event:     "high_risk_insight",
		Subject:   insight.Subject,
		RiskLevel: insight.RiskLevel,
		Veracity:  insight.Veracity,
		Summary:   insight.Summary,
		InsightID: insight.ID,
		CreatedAt: insight.CreatedAt,
	})
	if err != nil {
		w.logger.Error(ctx, "encode alert payload", logger.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Error(ctx, "build alert request", logger.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		metrics.RecordWebhookFailure()
		w.logger.Warn(ctx, "alert delivery failed",
			logger.String("subject", insight.Subject), logger.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.RecordWebhookFailure()
		w.logger.Warn(ctx, "alert rejected by webhook",
			logger.String("subject", insight.Subject),
			logger.Int("status", resp.StatusCode))
	}
}
