package rpstage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for an invalid constructor argument.
	ErrInvalidArgument = errors.New("rpstage: invalid argument")

	// ErrClosed is returned by every operation on a closed stage.
	ErrClosed = errors.New("rpstage: stage closed")

	// ErrNotSent is returned when a buffer is received without a preceding
	// send, or received twice for one send.
	ErrNotSent = errors.New("rpstage: receive without send")

	// ErrWrongMode is returned when an operation is not valid in the stage's
	// current mode, such as submitting while retrieving.
	ErrWrongMode = errors.New("rpstage: operation not valid in current mode")

	// ErrRequestTooLarge is returned when a request does not fit even an
	// empty buffer.
	ErrRequestTooLarge = errors.New("rpstage: request exceeds buffer capacity")

	// ErrUnpairedQuery is the protocol violation raised when a paired
	// retrieval yields a first end but no second end.
	ErrUnpairedQuery = errors.New("rpstage: unpaired query")

	// ErrStagePoisoned marks calls made after a protocol violation and before
	// the next Clear.
	ErrStagePoisoned = errors.New("rpstage: stage poisoned by protocol violation")
)

// ProtocolError reports a broken submission/retrieval invariant. It is not
// recoverable: the stage driving code has a bug.
//
// The underlying sentinel can be matched with errors.Is.
type ProtocolError struct {
	Op     string
	Buffer int    // buffer index in the stage, -1 if unknown
	Search uint64 // ID of the request involved, 0 if none
	cause  error
}

func (e *ProtocolError) Error() string {
	if errors.Is(e.cause, ErrUnpairedQuery) {
		return fmt.Sprintf("region-profile stage: %s: couldn't retrieve query-pair (buffer %d, end1 search %d)", e.Op, e.Buffer, e.Search)
	}
	return fmt.Sprintf("region-profile stage: %s: buffer %d: %v", e.Op, e.Buffer, e.cause)
}

func (e *ProtocolError) Unwrap() error { return e.cause }
