// Package anomaly implements the rule-based rating anomaly detector.
//
// Detection is a pure function of the ratings and aggregate stats: identical
// input always yields identical flags and score, and nothing is mutated, so
// the detector is independently testable.
package anomaly

import (
	"fmt"
	"sort"
	"time"

	"github.com/veridex/veridex/internal/domain/model"
)

// Heuristic contributions and thresholds.
const (
	rateSpikeWindow    = time.Hour
	rateSpikeMinCount  = 5
	rateSpikeScore     = 20
	newWalletWindow    = 7 * 24 * time.Hour
	newWalletMinCount  = 3
	newWalletMinShare  = 0.5
	newWalletScore     = 35
	whaleStakeShare    = 0.40
	whaleStakeScore    = 30
	uniformityMinCount = 5
	uniformityShare    = 0.80
	uniformityScore    = 15
	slashedScore       = 25
)

// Detector evaluates the five rating heuristics.
type Detector struct {
	now func() time.Time
}

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithNow sets the clock used for recency windows. Tests pin it.
func WithNow(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDetector creates a detector with configuration options.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs all heuristics over the ratings. Each heuristic fires at most
// once and contributes additively to the risk score; flags are appended in
// detection order.
func (d *Detector) Detect(ratings []model.RatingEvent, stats model.AggregateStats) model.AnomalyReport {
	report := model.AnomalyReport{Flags: []model.AnomalyFlag{}}
	now := d.now()

	if f, ok := detectRateSpike(ratings, now); ok {
		report.Flags = append(report.Flags, f)
		report.RiskScore += rateSpikeScore
	}
	if f, ok := detectNewWalletCluster(ratings, now); ok {
		report.Flags = append(report.Flags, f)
		report.RiskScore += newWalletScore
	}
	if f, ok := detectWhaleStake(ratings); ok {
		report.Flags = append(report.Flags, f)
		report.RiskScore += whaleStakeScore
	}
	if f, ok := detectScoreUniformity(ratings); ok {
		report.Flags = append(report.Flags, f)
		report.RiskScore += uniformityScore
	}
	if f, ok := detectSlashed(ratings); ok {
		report.Flags = append(report.Flags, f)
		report.RiskScore += slashedScore
	}

	report.RiskLevel = model.RiskLevelFor(report.RiskScore)
	return report
}

// detectRateSpike fires when five or more ratings landed within the last hour.
func detectRateSpike(ratings []model.RatingEvent, now time.Time) (model.AnomalyFlag, bool) {
	cutoff := now.Add(-rateSpikeWindow).Unix()
	var recent []string
	for _, r := range ratings {
		if r.Timestamp > cutoff {
			recent = append(recent, r.User)
		}
	}
	if len(recent) < rateSpikeMinCount {
		return model.AnomalyFlag{}, false
	}
	return model.AnomalyFlag{
		Type:     "rate_spike",
		Severity: model.SeverityMedium,
		Detail:   fmt.Sprintf("%d ratings submitted within the last hour", len(recent)),
		Evidence: recent,
	}, true
}

// detectNewWalletCluster fires when at least three raters joined the chain in
// the last seven days and they make up more than half of all ratings.
func detectNewWalletCluster(ratings []model.RatingEvent, now time.Time) (model.AnomalyFlag, bool) {
	if len(ratings) == 0 {
		return model.AnomalyFlag{}, false
	}
	cutoff := now.Add(-newWalletWindow).Unix()
	var fresh []string
	for _, r := range ratings {
		if r.WalletFirstSeen != 0 && r.WalletFirstSeen > cutoff {
			fresh = append(fresh, r.User)
		}
	}
	share := float64(len(fresh)) / float64(len(ratings))
	if len(fresh) < newWalletMinCount || share <= newWalletMinShare {
		return model.AnomalyFlag{}, false
	}
	return model.AnomalyFlag{
		Type:     "new_wallet_cluster",
		Severity: model.SeverityHigh,
		Detail:   fmt.Sprintf("%d of %d ratings come from wallets younger than 7 days", len(fresh), len(ratings)),
		Evidence: fresh,
	}, true
}

// detectWhaleStake fires when a single rating carries more than 40% of the
// total stake across all ratings.
func detectWhaleStake(ratings []model.RatingEvent) (model.AnomalyFlag, bool) {
	var total float64
	for _, r := range ratings {
		total += r.Stake
	}
	if total <= 0 {
		return model.AnomalyFlag{}, false
	}
	for _, r := range ratings {
		if share := r.Stake / total; share > whaleStakeShare {
			return model.AnomalyFlag{
				Type:     "whale_stake",
				Severity: model.SeverityHigh,
				Detail:   fmt.Sprintf("single rating holds %.0f%% of total stake", share*100),
				Evidence: []string{r.User},
			}, true
		}
	}
	return model.AnomalyFlag{}, false
}

// detectScoreUniformity fires when one score value dominates five or more
// ratings beyond the 80% share threshold.
func detectScoreUniformity(ratings []model.RatingEvent) (model.AnomalyFlag, bool) {
	if len(ratings) < uniformityMinCount {
		return model.AnomalyFlag{}, false
	}
	counts := make(map[float64]int)
	for _, r := range ratings {
		counts[r.Score]++
	}
	var topScore float64
	var topCount int
	// Deterministic tie-break: lowest score value wins.
	scores := make([]float64, 0, len(counts))
	for s := range counts {
		scores = append(scores, s)
	}
	sort.Float64s(scores)
	for _, s := range scores {
		if counts[s] > topCount {
			topScore, topCount = s, counts[s]
		}
	}
	if float64(topCount)/float64(len(ratings)) <= uniformityShare {
		return model.AnomalyFlag{}, false
	}
	return model.AnomalyFlag{
		Type:     "score_uniformity",
		Severity: model.SeverityLow,
		Detail:   fmt.Sprintf("score %.1f accounts for %d of %d ratings", topScore, topCount, len(ratings)),
	}, true
}

// detectSlashed fires when any rating has been slashed on-chain.
func detectSlashed(ratings []model.RatingEvent) (model.AnomalyFlag, bool) {
	var slashed []string
	for _, r := range ratings {
		if r.Slashed {
			slashed = append(slashed, r.User)
		}
	}
	if len(slashed) == 0 {
		return model.AnomalyFlag{}, false
	}
	return model.AnomalyFlag{
		Type:     "slashed_ratings",
		Severity: model.SeverityHigh,
		Detail:   fmt.Sprintf("%d rating(s) have been slashed", len(slashed)),
		Evidence: slashed,
	}, true
}
