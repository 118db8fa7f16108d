package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput signals an empty or whitespace-only document text.
	ErrEmptyInput = errors.New("empty input")
	// ErrEmptyAnswer signals a blank answer submission.
	ErrEmptyAnswer = errors.New("empty answer")
	// ErrUnsupportedFormat signals a document format the extractor cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrSessionNotFound signals a stale or unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidState signals an operation called in the wrong session state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrEmbeddingUnavailable signals an embedding provider failure.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrGenerationUnavailable signals a generation provider failure.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")
	// ErrProviderTimeout signals that a provider call exceeded its deadline.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrDuplicateQuestion signals that the provider kept returning an
	// already-asked question after the single allowed regeneration.
	ErrDuplicateQuestion = errors.New("duplicate question")
)

// InvalidStateError wraps ErrInvalidState with the operation and observed status.
type InvalidStateError struct {
	Op     string
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s not allowed in status %s", ErrInvalidState.Error(), e.Op, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NewInvalidState creates an invalid state error for the given operation.
func NewInvalidState(op, status string) error {
	return &InvalidStateError{Op: op, Status: status}
}
