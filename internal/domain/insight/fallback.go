package insight

import (
	"fmt"

	"github.com/veridex/veridex/internal/domain/model"
)

// fallbackConfidence is attached to every deterministic insight so readers
// can tell it apart from a model-backed assessment by score alone.
const fallbackConfidence = 0.7

// Fallback derives a TrustInsight from the evaluation context alone, with no
// language model involved. Pure and deterministic: the same context always
// yields the same insight (timestamps and IDs are filled in by the caller).
func Fallback(ec model.EvaluationContext, report *model.RedTeamReport) model.TrustInsight {
	veracity := model.VeracityUnknown
	if cmp := ec.AccuracyComparison; cmp != nil && cmp.Difference != nil {
		if cmp.Mismatch {
			veracity = model.VeracityMismatch
		} else {
			veracity = model.VeracityMatch
		}
	}

	riskLevel := model.RiskLevelFor(ec.Anomalies.RiskScore)

	authenticity := 1 - float64(ec.Anomalies.RiskScore)/100
	if authenticity < 0 {
		authenticity = 0
	}
	consensus := float64(ec.Stats.TotalRatings) / 10
	if consensus > 1 {
		consensus = 1
	}

	summary := fmt.Sprintf(
		"Automated assessment of %s: %d anomaly flag(s) scored %d (%s risk) across %d community rating(s); accuracy claims are %s.",
		ec.Subject, len(ec.Anomalies.Flags), ec.Anomalies.RiskScore, riskLevel,
		ec.Stats.TotalRatings, veracityPhrase(veracity))

	evidence := make([]string, 0, len(ec.Anomalies.Flags))
	for _, f := range ec.Anomalies.Flags {
		evidence = append(evidence, f.Detail)
	}

	actions := []string{"continue_monitoring"}
	if riskLevel == model.RiskHigh {
		actions = []string{"flag_model", "request_review"}
	}

	return model.TrustInsight{
		Subject:            ec.Subject,
		Veracity:           veracity,
		RiskLevel:          riskLevel,
		Confidence:         fallbackConfidence,
		Summary:            summary,
		Evidence:           evidence,
		RecommendedActions: actions,
		TrustIndicators: model.TrustIndicators{
			RatingAuthenticity: authenticity,
			CommunityConsensus: consensus,
		},
		RedTeam: report,
		Context: contextSummary(ec),
		Origin:  model.OriginFallback,
	}
}

func veracityPhrase(v model.Veracity) string {
	switch v {
	case model.VeracityMatch:
		return "consistent with measurements"
	case model.VeracityMismatch:
		return "inconsistent with measurements"
	default:
		return "unverified"
	}
}

// contextSummary projects the audit fields every insight carries.
func contextSummary(ec model.EvaluationContext) model.InsightContext {
	ic := model.InsightContext{
		RiskScore:       ec.Anomalies.RiskScore,
		AnomalyCount:    len(ec.Anomalies.Flags),
		TotalRatings:    ec.Stats.TotalRatings,
		ClaimedAccuracy: ec.ModelCard.ClaimedAccuracy(),
	}
	if ec.Benchmark != nil {
		ic.MeasuredAccuracy = ec.Benchmark.MeasuredAccuracy
	}
	return ic
}
