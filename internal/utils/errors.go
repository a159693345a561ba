package utils

import (
	"errors"
	"fmt"
)

var (
	ErrProbe               = errors.New("size probe failed")
	ErrUnknownLength       = errors.New("server did not report a usable content length")
	ErrAllocation          = errors.New("could not allocate target file")
	ErrChunkTransient      = errors.New("transient chunk failure")
	ErrChunkFailure        = errors.New("chunk exhausted its retry budget")
	ErrRedirectEncountered = errors.New("range request was redirected")
	ErrInvalidPlan         = errors.New("invalid chunk plan")
)

// ChunkFailure is the terminal outcome of a byte range that could not be completed.
// errors.Is matches both ErrChunkFailure and the last attempt's cause.
type ChunkFailure struct {
	Range    ByteRange
	Attempts int
	Err      error
}

func (e *ChunkFailure) Error() string {
	return fmt.Sprintf("bytes %s failed after %d attempt(s): %v", e.Range, e.Attempts, e.Err)
}

func (e *ChunkFailure) Unwrap() []error {
	return []error{ErrChunkFailure, e.Err}
}
