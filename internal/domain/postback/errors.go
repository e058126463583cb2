package postback

import "errors"

var (
	// ErrJobNotFound is returned when no job matches the lookup.
	ErrJobNotFound = errors.New("postback job not found")

	// ErrAlreadyClaimed is returned when a conditional claim finds the job no
	// longer pending. The sweep skips it; another worker owns it.
	ErrAlreadyClaimed = errors.New("postback job already claimed")
)
