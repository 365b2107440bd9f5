package chain

import "errors"

// Sentinel kinds for chain adapter errors.
var (
	ErrSubscribe         = errors.New("chain subscription failed")
	ErrAlreadySubscribed = errors.New("source already subscribed")
)
