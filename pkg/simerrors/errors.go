// Package simerrors provides coded domain errors for the SIM lifecycle core.
// Services return these so transport layers can map failures to responses
// without string matching.
package simerrors

import "errors"

// Code classifies a domain failure.
type Code string

const (
	// CodeInvalidTransition means the requested status transition is not
	// legal from the SIM's current status. Recoverable, never retried.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeCodeUnusable means the activation code is missing, expired or
	// already consumed.
	CodeCodeUnusable Code = "code_unusable"

	// CodeIdentifierSpaceExhausted means identifier generation could not
	// find a unique value within the attempt bound. A capacity problem,
	// not a transient condition.
	CodeIdentifierSpaceExhausted Code = "identifier_space_exhausted"

	// CodeConflict means a lock timeout or concurrent-update clash; the
	// caller may retry the whole operation from scratch.
	CodeConflict Code = "conflict"

	// CodeUnavailable means the underlying transaction could not be
	// started or committed.
	CodeUnavailable Code = "unavailable"

	CodeNotFound   Code = "not_found"
	CodeValidation Code = "validation"
	CodeInternal   Code = "internal"
)

// Error is a domain error with a machine-readable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message while preserving the chain.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf extracts the code from the first domain error in the chain.
// Returns CodeInternal for errors that carry no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
