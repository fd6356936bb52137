package raftlog

import (
	"fmt"
)

// IndexError reports the index an operation was given and, for appends, the
// index it should have been.
type IndexError struct {
	Index    uint64
	Expected uint64
	Cause    error
}

func (e *IndexError) Error() string {
	if e.Expected != 0 {
		return fmt.Sprintf("index %d, expected %d: %v", e.Index, e.Expected, e.Cause)
	}
	return fmt.Sprintf("index %d: %v", e.Index, e.Cause)
}

func (e *IndexError) Unwrap() error {
	return e.Cause
}

func outOfRange(index uint64) error {
	return &IndexError{Index: index, Cause: ErrIndexOutOfRange}
}
