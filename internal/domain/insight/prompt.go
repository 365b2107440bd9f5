package insight

import (
	"fmt"
	"strings"

	"github.com/veridex/veridex/internal/domain/model"
)

const systemPrompt = `You are a trust analyst for remotely hosted machine learning models.
You are given on-chain community rating data, self-reported model metadata,
independent benchmark results and anomaly findings for one model. Assess its
trustworthiness and answer with a single JSON object, no prose and no markdown,
matching exactly this shape:
{
  "veracity": "MATCH" | "MISMATCH" | "UNKNOWN",
  "risk_level": "LOW" | "MEDIUM" | "HIGH" | "CRITICAL",
  "confidence": <number between 0 and 1>,
  "summary": "<two or three sentences>",
  "evidence": ["<observation>", ...],
  "recommended_actions": ["<action>", ...],
  "trust_indicators": {
    "rating_authenticity": <number between 0 and 1>,
    "community_consensus": <number between 0 and 1>
  }
}
Base every claim on the provided data only.`

// buildUserPrompt renders the evaluation context into the analyst prompt.
func buildUserPrompt(ec model.EvaluationContext, report *model.RedTeamReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Subject: %s\n\n", ec.Subject)
	fmt.Fprintf(&b, "On-chain aggregate:\n")
	fmt.Fprintf(&b, "- trust score: %.2f\n", ec.Stats.TrustScore)
	fmt.Fprintf(&b, "- total ratings: %d (active: %d)\n", ec.Stats.TotalRatings, ec.Stats.ActiveRatings)
	fmt.Fprintf(&b, "- average score: %.2f, total staked: %.2f\n\n", ec.Stats.AverageScore, ec.Stats.TotalStaked)

	if claimed := ec.ModelCard.ClaimedAccuracy(); claimed != nil {
		fmt.Fprintf(&b, "Self-reported accuracy: %.4f\n", *claimed)
	} else {
		b.WriteString("Self-reported accuracy: not published\n")
	}
	if ec.Benchmark != nil && ec.Benchmark.MeasuredAccuracy != nil {
		fmt.Fprintf(&b, "Independently measured accuracy: %.4f (%d samples)\n",
			*ec.Benchmark.MeasuredAccuracy, ec.Benchmark.SamplesTested)
	} else {
		b.WriteString("Independently measured accuracy: not available\n")
	}
	if cmp := ec.AccuracyComparison; cmp != nil && cmp.Difference != nil {
		fmt.Fprintf(&b, "Claimed-vs-measured difference: %.4f (mismatch: %t, severity: %s)\n",
			*cmp.Difference, cmp.Mismatch, cmp.Severity)
	}

	fmt.Fprintf(&b, "\nAnomaly findings (risk score %d, level %s):\n",
		ec.Anomalies.RiskScore, ec.Anomalies.RiskLevel)
	if len(ec.Anomalies.Flags) == 0 {
		b.WriteString("- none\n")
	}
	for _, f := range ec.Anomalies.Flags {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Severity, f.Type, f.Detail)
	}

	if report != nil {
		fmt.Fprintf(&b, "\nAdversarial probe verdict (%d run, %d failed, level %s): %s\n",
			report.Metadata.TestsRun, report.Metadata.TestsFailed,
			report.RiskLevel, report.Verdict.Summary)
		for _, t := range report.Tests {
			fmt.Fprintf(&b, "- %s: %s", t.Name, t.Status)
			if t.Evidence != "" {
				fmt.Fprintf(&b, " (%s)", t.Evidence)
			}
			b.WriteByte('\n')
		}
	}

	if len(ec.Historical) > 0 {
		b.WriteString("\nRecent trust score history (newest first):\n")
		for _, s := range ec.Historical {
			fmt.Fprintf(&b, "- %.2f at %s\n", s.TrustScore, s.CreatedAt.UTC().Format("2006-01-02 15:04"))
		}
	}

	return b.String()
}
