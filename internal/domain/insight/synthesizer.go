// Package insight turns a completed evaluation context into a persisted
// trust judgment, via a language model when possible and a deterministic
// fallback when not.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veridex/veridex/internal/domain/model"
	"github.com/veridex/veridex/pkg/logger"
	"github.com/veridex/veridex/pkg/metrics"
)

// LanguageModel produces one assistant message for a system+user exchange.
type LanguageModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Notifier receives high-risk findings. May be nil.
type Notifier interface {
	NotifyHighRisk(ctx context.Context, insight model.TrustInsight)
}

// Synthesizer produces TrustInsights from evaluation contexts.
type Synthesizer struct {
	lm       LanguageModel
	notifier Notifier
	now      func() time.Time
	logger   logger.Logger
}

// Option applies a configuration option to the Synthesizer.
type Option func(*Synthesizer)

// WithNotifier wires an alert channel for HIGH and CRITICAL findings.
func WithNotifier(n Notifier) Option {
	return func(s *Synthesizer) { s.notifier = n }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Synthesizer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the synthesizer.
func WithLogger(l logger.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a synthesizer. lm may be nil, in which case every insight
// takes the deterministic path.
func New(lm LanguageModel, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		lm:     lm,
		now:    time.Now,
		logger: logger.Get().Named("insight"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// assessment is the JSON shape the language model must answer with.
type assessment struct {
	Veracity           model.Veracity         `json:"veracity"`
	RiskLevel          model.RiskLevel        `json:"risk_level"`
	Confidence         float64                `json:"confidence"`
	Summary            string                 `json:"summary"`
	Evidence           []string               `json:"evidence"`
	RecommendedActions []string               `json:"recommended_actions"`
	TrustIndicators    *model.TrustIndicators `json:"trust_indicators"`
}

// Synthesize produces one insight for a completed evaluation. Any language
// model failure, malformed answer or invalid field degrades to the
// deterministic fallback; Synthesize itself never fails.
func (s *Synthesizer) Synthesize(ctx context.Context, ec model.EvaluationContext, report *model.RedTeamReport) model.TrustInsight {
	out, err := s.fromModel(ctx, ec, report)
	if err != nil {
		if s.lm != nil {
			s.logger.Warn(ctx, "synthesis degraded to deterministic fallback",
				logger.String("subject", ec.Subject), logger.Error(err))
		}
		metrics.RecordInsightFallback()
		out = Fallback(ec, report)
	} else {
		metrics.RecordInsightSynthesized()
	}

	out.ID = uuid.NewString()
	out.CreatedAt = s.now().UTC()

	if s.notifier != nil && (out.RiskLevel == model.RiskHigh || out.RiskLevel == model.RiskCritical) {
		s.notifier.NotifyHighRisk(ctx, out)
	}
	return out
}

func (s *Synthesizer) fromModel(ctx context.Context, ec model.EvaluationContext, report *model.RedTeamReport) (model.TrustInsight, error) {
	if s.lm == nil {
		return model.TrustInsight{}, ErrNoLanguageModel
	}

	raw, err := s.lm.Complete(ctx, systemPrompt, buildUserPrompt(ec, report))
	if err != nil {
		return model.TrustInsight{}, err
	}

	a, err := parseAssessment(raw)
	if err != nil {
		return model.TrustInsight{}, err
	}

	out := model.TrustInsight{
		Subject:            ec.Subject,
		Veracity:           a.Veracity,
		RiskLevel:          a.RiskLevel,
		Confidence:         a.Confidence,
		Summary:            a.Summary,
		Evidence:           a.Evidence,
		RecommendedActions: a.RecommendedActions,
		RedTeam:            report,
		Context:            contextSummary(ec),
		Origin:             model.OriginSynthesized,
	}
	if a.TrustIndicators != nil {
		out.TrustIndicators = *a.TrustIndicators
	}
	return out, nil
}

// parseAssessment decodes and validates the model's answer. Anything the
// reader could not safely serve is rejected.
func parseAssessment(raw string) (assessment, error) {
	var a assessment
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &a); err != nil {
		return assessment{}, fmt.Errorf("%w: %w", ErrMalformedAssessment, err)
	}

	switch a.Veracity {
	case model.VeracityMatch, model.VeracityMismatch, model.VeracityUnknown:
	default:
		return assessment{}, fmt.Errorf("%w: veracity %q", ErrMalformedAssessment, a.Veracity)
	}
	switch a.RiskLevel {
	case model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
	default:
		return assessment{}, fmt.Errorf("%w: risk level %q", ErrMalformedAssessment, a.RiskLevel)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return assessment{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformedAssessment, a.Confidence)
	}
	if strings.TrimSpace(a.Summary) == "" {
		return assessment{}, fmt.Errorf("%w: empty summary", ErrMalformedAssessment)
	}
	return a, nil
}

// stripCodeFence unwraps a ```json ... ``` block when the model ignores the
// no-markdown instruction.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
