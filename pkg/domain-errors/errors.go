// Package domainerrors provides coded errors for the service layer.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate them into coded errors here so
// transport can map every failure to a stable kind plus a safe message.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error kind.
type Code string

const (
	// CodeBadRequest marks a structurally broken request (missing id, bad body).
	CodeBadRequest Code = "bad_request"
	// CodeValidation marks input that parsed but fails domain validation.
	CodeValidation Code = "validation_error"
	// CodeInvalidInput marks a malformed primitive (bad UUID, unknown enum value).
	CodeInvalidInput Code = "invalid_input"
	// CodeUnauthorized marks missing or failed authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated actor lacking the required role
	// or ownership for the attempted operation.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a stage/status precondition failure or a
	// uniqueness violation.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a domain invariant breach (e.g. a stage
	// regression attempt). Services usually translate it to CodeConflict at
	// the boundary.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks a cancelled or deadline-exceeded operation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks storage or other infrastructure failures. The
	// message is never exposed to callers.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a coded error around a cause. The cause stays reachable via
// errors.Is / errors.As but is never rendered to external callers.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is treats two coded errors with the same code as equivalent, so
// errors.Is(err, dErrors.New(dErrors.CodeConflict, "")) works in tests.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// un-coded errors so nothing leaks as a surprise 200.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the safe message from err. Un-coded errors get a
// generic message; their detail stays in logs only.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
