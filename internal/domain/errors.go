package domain

import "errors"

// Conditions that end an evaluation without a signal. They never escape the
// strategy operations; strategies log them at debug level.
var (
	ErrMissingStructuralData = errors.New("no structural points")
	ErrAlignmentUnavailable  = errors.New("bar has no coarser alignment")
	ErrStaleSignal           = errors.New("last structural point is not on the current bar")
	ErrDirectionMismatch     = errors.New("coarse and fine directions differ")
	ErrNoResonance           = errors.New("no resonating finer point")
)

// ErrSourceUnavailable marks failures of the upstream data source. Callers
// abort the current instrument and continue with the next one.
var ErrSourceUnavailable = errors.New("level source unavailable")
