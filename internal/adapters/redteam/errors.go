package redteam

import "errors"

// ErrProbeFailed indicates the prober rejected or failed the assessment.
var ErrProbeFailed = errors.New("probe request failed")
