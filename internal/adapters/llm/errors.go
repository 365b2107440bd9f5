package llm

import "errors"

// ErrEmptyCompletion indicates the provider returned no choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")
