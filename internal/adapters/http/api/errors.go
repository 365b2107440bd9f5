// Package api declares HTTP contracts and route registration helpers.
package api

import "errors"

// Common API error values.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrMissingSubject  = errors.New("missing subject")
	ErrMissingTaskType = errors.New("missing task")
	ErrInvalidLimit    = errors.New("limit must be a positive integer")
	ErrInvalidAccuracy = errors.New("min_accuracy must be between 0 and 1")
)
