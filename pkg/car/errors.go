package car

import "errors"

// Failure taxonomy for the archive layer. Container-level corruption from
// package bom passes through unwrapped; everything the schema layer itself
// detects maps onto one of these.
var (
	ErrCorrupt     = errors.New("archive is corrupt")
	ErrUnsupported = errors.New("archive format not supported")
	ErrConflict    = errors.New("conflicting archive entries")
	ErrInvalid     = errors.New("invalid input")
	ErrNotFound    = errors.New("not found")
)
