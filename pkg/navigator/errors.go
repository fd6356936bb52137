package navigator

import (
	"errors"
	"fmt"
	"io"
)

// Common sentinel errors
var (
	// ErrEntryNotFound means the requested sequence number is not (or not yet)
	// in the log. It is an expected outcome for out-of-range requests.
	ErrEntryNotFound = errors.New("log entry not found")

	// ErrInvalidArgument is returned for programmer errors such as a
	// non-positive max entry seek or a truncation at sequence number 0.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NavigatorError carries the operation and sequence number that failed.
type NavigatorError struct {
	Op      string // e.g. "AddressOf", "NotifyTruncation"
	SeqNum  uint64
	Cause   error
	Context string
}

// Error implements the error interface.
func (e *NavigatorError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s seqNum %d (%s): %v", e.Op, e.SeqNum, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s seqNum %d: %v", e.Op, e.SeqNum, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *NavigatorError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err means the entry does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}

// IsEndOfData reports whether err is a codec's end-of-data signal: a clean
// io.EOF or a record cut short by the end of the store.
func IsEndOfData(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func notFound(op string, seqNum uint64, context string) error {
	return &NavigatorError{Op: op, SeqNum: seqNum, Cause: ErrEntryNotFound, Context: context}
}

func invalidArgument(op string, seqNum uint64, context string) error {
	return &NavigatorError{Op: op, SeqNum: seqNum, Cause: ErrInvalidArgument, Context: context}
}
