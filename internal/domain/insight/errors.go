package insight

import "errors"

var (
	// ErrNoLanguageModel indicates the synthesizer was built without one.
	ErrNoLanguageModel = errors.New("no language model configured")
	// ErrMalformedAssessment indicates the model's answer could not be
	// validated into an insight.
	ErrMalformedAssessment = errors.New("malformed assessment")
)
