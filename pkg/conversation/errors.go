package conversation

import "errors"

var (
	// ErrEmptyInput is returned for blank user text. Drivers re-prompt.
	ErrEmptyInput = errors.New("input is empty")
	// ErrInvalidState is returned when an operation is issued out of turn,
	// e.g. rendering without a pending user turn.
	ErrInvalidState = errors.New("no pending user turn")
	// ErrTruncation is returned when the generator produced nothing beyond
	// the prompt.
	ErrTruncation = errors.New("no response generated")
	// ErrClosed is returned by mutating operations once the session has
	// been closed.
	ErrClosed = errors.New("session is closed")
)

// GenerationError carries a failure from the generation capability. Its
// message is the capability's message, unchanged.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generation failed"
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }
