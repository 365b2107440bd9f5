package repository

import "errors"

// ErrNotFound indicates no live record exists for the key.
var ErrNotFound = errors.New("not found")
