// Package accuracy compares self-reported accuracy claims against
// independently measured benchmark results.
package accuracy

import (
	"math"

	"github.com/veridex/veridex/internal/domain/model"
)

// Comparison thresholds shared with the synthesizer's veracity rules.
const (
	mismatchThreshold = 0.10
	highThreshold     = 0.25
)

// Compare relates a model card's claimed accuracy to a benchmark measurement.
// Returns nil when neither side is available. Difference stays nil unless both
// sides are present; mismatch and severity are derived from it.
func Compare(card *model.ModelCard, bench *model.Benchmark) *model.AccuracyComparison {
	claimed := card.ClaimedAccuracy()
	var measured *float64
	if bench != nil {
		measured = bench.MeasuredAccuracy
	}
	if claimed == nil && measured == nil {
		return nil
	}

	cmp := &model.AccuracyComparison{
		Claimed:  claimed,
		Measured: measured,
		Severity: model.SeverityLow,
	}
	if claimed == nil || measured == nil {
		return cmp
	}

	diff := math.Abs(*claimed - *measured)
	cmp.Difference = &diff
	cmp.Mismatch = diff > mismatchThreshold
	switch {
	case diff > highThreshold:
		cmp.Severity = model.SeverityHigh
	case cmp.Mismatch:
		cmp.Severity = model.SeverityMedium
	}
	return cmp
}

// Comparator is the method form of Compare for callers wired by interface.
type Comparator struct{}

// NewComparator creates a comparator.
func NewComparator() *Comparator { return &Comparator{} }

// Compare implements the comparison over a card and a benchmark.
func (*Comparator) Compare(card *model.ModelCard, bench *model.Benchmark) *model.AccuracyComparison {
	return Compare(card, bench)
}
