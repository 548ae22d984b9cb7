package spacedrep

import "errors"

// Sentinel errors. Check with errors.Is.
var (
	// ErrInvalidArgument marks malformed input such as a non-positive batch
	// size or an outcome other than correct/incorrect.
	ErrInvalidArgument = errors.New("spacedrep: invalid argument")

	// ErrUnknownEntry means an outcome was recorded for an entry the
	// scheduler's catalog does not contain.
	ErrUnknownEntry = errors.New("spacedrep: unknown entry")
)
