package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrJobPanicked = errors.New("evaluation job panicked")
)
