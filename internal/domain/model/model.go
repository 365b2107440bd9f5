// Package model contains domain models passed between layers.
package model

import "time"

// RiskLevel buckets a numeric risk score into a severity band.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Veracity classifies whether claimed and measured accuracy agree.
type Veracity string

const (
	VeracityMatch    Veracity = "MATCH"
	VeracityMismatch Veracity = "MISMATCH"
	VeracityUnknown  Veracity = "UNKNOWN"
)

// FlagSeverity grades an individual anomaly flag.
type FlagSeverity string

const (
	SeverityLow    FlagSeverity = "low"
	SeverityMedium FlagSeverity = "medium"
	SeverityHigh   FlagSeverity = "high"
)

// RatingEvent is a community rating as observed on-chain. Immutable once
// observed; the pipeline only reads it.
type RatingEvent struct {
	Subject      string  `json:"subject"`
	User         string  `json:"user"`
	Score        float64 `json:"score"` // 0-5
	MetadataHash string  `json:"metadata_hash"`
	Stake        float64 `json:"stake"`
	Timestamp    int64   `json:"timestamp"` // unix seconds
	Slashed      bool    `json:"slashed"`
	Weight       float64 `json:"weight"`
	// WalletFirstSeen is the unix time the rater's wallet first appeared
	// on-chain. Zero means the indexer could not establish wallet age.
	WalletFirstSeen int64 `json:"wallet_first_seen,omitempty"`
}

// AggregateStats is the on-chain aggregate for a subject.
type AggregateStats struct {
	TrustScore    float64 `json:"trust_score"`
	TotalRatings  int     `json:"total_ratings"`
	ActiveRatings int     `json:"active_ratings"`
	AverageScore  float64 `json:"average_score"`
	TotalStaked   float64 `json:"total_staked"`
}

// EvalResult is one self-reported evaluation entry on a model card.
type EvalResult struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// ModelCard is the subject's self-reported metadata.
type ModelCard struct {
	Accuracy    *float64     `json:"accuracy,omitempty"`
	EvalResults []EvalResult `json:"eval_results,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	PipelineTag string       `json:"pipeline_tag,omitempty"`
	Downloads   int64        `json:"downloads,omitempty"`
	Likes       int64        `json:"likes,omitempty"`
}

// ClaimedAccuracy returns the self-reported accuracy: the direct field when
// set, otherwise the first evaluation-result entry. Nil when neither exists.
func (c *ModelCard) ClaimedAccuracy() *float64 {
	if c == nil {
		return nil
	}
	if c.Accuracy != nil {
		return c.Accuracy
	}
	if len(c.EvalResults) > 0 {
		v := c.EvalResults[0].Value
		return &v
	}
	return nil
}

// TaskType returns the cache partition for the subject, derived from the
// card's pipeline tag. Subjects without a card land in "unknown".
func (c *ModelCard) TaskType() string {
	if c == nil || c.PipelineTag == "" {
		return "unknown"
	}
	return c.PipelineTag
}

// Benchmark holds independently measured accuracy for a subject.
type Benchmark struct {
	MeasuredAccuracy *float64 `json:"measured_accuracy,omitempty"`
	SamplesTested    int      `json:"samples_tested"`
	Dataset          string   `json:"dataset,omitempty"`
	MeasuredAt       int64    `json:"measured_at,omitempty"`
}

// AnomalyFlag is one triggered heuristic with the evidence that fired it.
type AnomalyFlag struct {
	Type     string       `json:"type"`
	Severity FlagSeverity `json:"severity"`
	Detail   string       `json:"detail"`
	Evidence []string     `json:"evidence,omitempty"`
}

// AnomalyReport is the detector output: flags in detection order plus their
// weighted sum and its severity band.
type AnomalyReport struct {
	Flags     []AnomalyFlag `json:"flags"`
	RiskScore int           `json:"risk_score"`
	RiskLevel RiskLevel     `json:"risk_level"`
}

// AccuracyComparison relates claimed accuracy to measured accuracy.
// Difference is nil unless both sides are present.
type AccuracyComparison struct {
	Claimed    *float64     `json:"claimed,omitempty"`
	Measured   *float64     `json:"measured,omitempty"`
	Difference *float64     `json:"difference,omitempty"`
	Mismatch   bool         `json:"mismatch"`
	Severity   FlagSeverity `json:"severity"`
}

// EvaluationContext carries everything one evaluation run knows about a
// subject. Built once per job and immutable after assembly.
type EvaluationContext struct {
	Subject            string              `json:"subject"`
	Stats              AggregateStats      `json:"stats"`
	Ratings            []RatingEvent       `json:"ratings"`
	ModelCard          *ModelCard          `json:"model_card,omitempty"`
	Benchmark          *Benchmark          `json:"benchmark,omitempty"`
	Anomalies          AnomalyReport       `json:"anomalies"`
	AccuracyComparison *AccuracyComparison `json:"accuracy_comparison,omitempty"`
	Historical         []TrustSnapshot     `json:"historical,omitempty"`
}

// ProbeTest is a single adversarial probe outcome from the security prober.
type ProbeTest struct {
	Name     string `json:"name"`
	Status   string `json:"status"` // passed | failed | skipped
	Evidence string `json:"evidence,omitempty"`
}

// RedTeamReport is the security prober's verdict for one subject.
type RedTeamReport struct {
	RiskLevel RiskLevel   `json:"risk_level"`
	Tests     []ProbeTest `json:"tests"`
	Verdict   struct {
		Summary string `json:"summary"`
	} `json:"verdict"`
	Metadata struct {
		TestsRun    int `json:"tests_run"`
		TestsFailed int `json:"tests_failed"`
	} `json:"metadata"`
}

// InsightOrigin records which path produced an insight.
type InsightOrigin string

const (
	OriginSynthesized InsightOrigin = "synthesized"
	OriginFallback    InsightOrigin = "fallback"
)

// TrustIndicators are normalized 0-1 signals carried on every insight.
type TrustIndicators struct {
	RatingAuthenticity float64 `json:"rating_authenticity"`
	CommunityConsensus float64 `json:"community_consensus"`
}

// InsightContext is the compact evaluation summary embedded in an insight
// for audit, so readers never need the full context back.
type InsightContext struct {
	RiskScore        int      `json:"risk_score"`
	AnomalyCount     int      `json:"anomaly_count"`
	TotalRatings     int      `json:"total_ratings"`
	ClaimedAccuracy  *float64 `json:"claimed_accuracy,omitempty"`
	MeasuredAccuracy *float64 `json:"measured_accuracy,omitempty"`
}

// TrustInsight is the synthesized judgment produced per evaluation run.
// Append-only; never mutated after insertion.
type TrustInsight struct {
	ID                 string          `json:"id"`
	Subject            string          `json:"subject"`
	Veracity           Veracity        `json:"veracity"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	Confidence         float64         `json:"confidence"`
	Summary            string          `json:"summary"`
	Evidence           []string        `json:"evidence,omitempty"`
	RecommendedActions []string        `json:"recommended_actions,omitempty"`
	TrustIndicators    TrustIndicators `json:"trust_indicators"`
	RedTeam            *RedTeamReport  `json:"red_team,omitempty"`
	Context            InsightContext  `json:"context"`
	Origin             InsightOrigin   `json:"origin"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TrustSnapshot is a point-in-time copy of on-chain aggregate stats,
// append-only, used for trend queries.
type TrustSnapshot struct {
	ID         string         `json:"id"`
	Subject    string         `json:"subject"`
	TrustScore float64        `json:"trust_score"`
	Stats      AggregateStats `json:"stats"`
	CreatedAt  time.Time      `json:"created_at"`
}

// CachePayload is the read-optimized projection stored per cache entry.
type CachePayload struct {
	InsightID        string    `json:"insight_id"`
	TrustScore       float64   `json:"trust_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Veracity         Veracity  `json:"veracity"`
	Summary          string    `json:"summary"`
	MeasuredAccuracy *float64  `json:"measured_accuracy,omitempty"`
}

// CacheEntry is the TTL-bounded evaluation result served to read paths.
// At most one entry exists per (subject, task type) pair.
type CacheEntry struct {
	Subject        string       `json:"subject"`
	TaskType       string       `json:"task_type"`
	EvaluationType string       `json:"evaluation_type"`
	Payload        CachePayload `json:"payload"`
	CacheExpiry    time.Time    `json:"cache_expiry"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PipelineStatus is the operational snapshot served on the status endpoint.
type PipelineStatus struct {
	WatcherActive bool `json:"is_listening"`
	QueueLength   int  `json:"queue_length"`
	Processing    bool `json:"processing_queue"`
	Subjects      int  `json:"subjects"`
	Insights      int  `json:"insights"`
	Snapshots     int  `json:"snapshots"`
	Cached        int  `json:"cached"`
}

// Job is one unit of evaluation work. Owned exclusively by the job queue
// until consumed; no retry record is kept.
type Job struct {
	Subject    string    `json:"subject"`
	Reason     string    `json:"reason"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RiskLevelFor buckets a risk score using the detector thresholds.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}
