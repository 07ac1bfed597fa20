package repositories

import "fmt"

// SequenceErrorCode enumerates failure reasons for sequence operations.
type SequenceErrorCode string

const (
	// SequenceErrorUnknown represents an unspecified failure.
	SequenceErrorUnknown SequenceErrorCode = "sequence_unknown"
	// SequenceErrorInvalidInput indicates the caller supplied invalid arguments.
	SequenceErrorInvalidInput SequenceErrorCode = "sequence_invalid_input"
	// SequenceErrorExhausted indicates the sequence cannot be advanced further due to a configured max value.
	SequenceErrorExhausted SequenceErrorCode = "sequence_exhausted"
)

// SequenceError wraps sequence-specific failures with machine readable codes.
type SequenceError struct {
	Op      string
	Code    SequenceErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SequenceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *SequenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewSequenceError constructs a typed sequence error.
func NewSequenceError(code SequenceErrorCode, message string, err error) *SequenceError {
	if message == "" {
		message = string(code)
	}
	return &SequenceError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
