// Package apperror defines the error kinds every business operation reports.
// Handlers map kinds to stable response codes; the wrapped cause is only ever logged.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindUnauthenticated     Kind = "unauthenticated"
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidInput        Kind = "invalid_input"
	KindDuplicateEnrollment Kind = "duplicate_enrollment"
	KindPolicyViolation     Kind = "policy_violation"
	KindConflict            Kind = "conflict"
	KindInternal            Kind = "internal"
)

// Error is a typed business error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrDuplicateEnrollment = &Error{Kind: KindDuplicateEnrollment}
	ErrPolicyViolation     = &Error{Kind: KindPolicyViolation}
	ErrConflict            = &Error{Kind: KindConflict}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) error {
	return &Error{Kind: KindUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func DuplicateEnrollment(format string, args ...any) error {
	return &Error{Kind: KindDuplicateEnrollment, Message: fmt.Sprintf(format, args...)}
}

func PolicyViolation(format string, args ...any) error {
	return &Error{Kind: KindPolicyViolation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an infrastructure failure. The cause never reaches the caller.
func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf reports the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message of a typed error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return ""
}
