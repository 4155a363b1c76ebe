// Package apperrors defines the error taxonomy shared by analysis and conversion.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind represents a category of failure
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindEncodingFailure  Kind = "encoding_failure"
	KindModelUnavailable Kind = "model_unavailable"
	KindBackendFailure   Kind = "backend_failure"
)

// Sentinels for errors.Is checks against any *Error of the matching kind.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrEncodingFailure  = errors.New("encoding failure")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrBackendFailure   = errors.New("backend failure")
)

// Error is a categorized failure scoped to one call
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return sentinel(e.Kind) == target
}

func sentinel(k Kind) error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindEncodingFailure:
		return ErrEncodingFailure
	case KindModelUnavailable:
		return ErrModelUnavailable
	case KindBackendFailure:
		return ErrBackendFailure
	}
	return nil
}

// InvalidInput creates an error for undecodable bytes or out-of-range parameters
func InvalidInput(op, message string, cause error) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: message, Cause: cause}
}

// EncodingFailure wraps a codec error raised while encoding
func EncodingFailure(op, message string, cause error) *Error {
	return &Error{Kind: KindEncodingFailure, Op: op, Message: message, Cause: cause}
}

// ModelUnavailable reports a missing model, label file or uninitialized backend
func ModelUnavailable(op, message string, cause error) *Error {
	return &Error{Kind: KindModelUnavailable, Op: op, Message: message, Cause: cause}
}

// BackendFailure reports that a configured inference backend failed to execute
func BackendFailure(op, message string, cause error) *Error {
	return &Error{Kind: KindBackendFailure, Op: op, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err, or "" when err is not categorized.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
