package sources

import "errors"

// Sentinel kinds for source reader errors.
var (
	ErrStatsUnavailable = errors.New("stats reader failed")
	ErrBadStatus        = errors.New("unexpected response status")
	ErrDecode           = errors.New("response decode failed")
)
