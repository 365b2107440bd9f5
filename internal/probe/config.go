// Package probe drives a running veridex instance end to end: it triggers
// evaluations for a set of subjects, reads the results back and verifies
// the read surface is consistent with what was evaluated.
package probe

import "time"

// Default probe configuration constants.
const (
	DefaultSubjects = 5
	DefaultTopN     = 10
	DefaultTimeout  = 120 * time.Second
)

// Config holds the probe run parameters.
type Config struct {
	// BaseURL of the running service.
	BaseURL string

	// Subjects to evaluate. Empty means generate synthetic slugs.
	Subjects []string

	// NumSubjects of synthetic slugs when Subjects is empty.
	NumSubjects int

	// TopN entries to fetch from the ranking afterwards.
	TopN int

	// Timeout for one HTTP round trip. Manual evaluations wait on the
	// language model, so this is generous.
	Timeout time.Duration

	// Verbose enables per-subject result output.
	Verbose bool
}

// Stats accumulates run results.
type Stats struct {
	Evaluated    int
	Failed       int
	HighRisk     int
	Fallbacks    int
	TotalElapsed time.Duration
}
