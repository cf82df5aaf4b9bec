package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an engine error so callers can decide whether to surface,
// recover, or skip without string matching.
type Kind int

const (
	// KindValidation means the input was rejected before any write.
	KindValidation Kind = iota
	// KindNotFound means a referenced record is absent from the store.
	KindNotFound
	// KindConflict means a duplicate-key on an idempotent insert. Recoverable.
	KindConflict
	// KindUpstream means the store or the AI collaborator failed. The original
	// cause is preserved; retry policy belongs to the caller.
	KindUpstream
)

// Error is the typed error carried across the engine.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation creates a validation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error for the named record.
func NotFound(record, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", record, id)}
}

// Conflict creates a conflict error wrapping the duplicate-key cause.
func Conflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: message, Cause: cause}
}

// Upstream wraps a store or collaborator failure, preserving the cause.
func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Cause: cause}
}

func is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return is(err, KindValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return is(err, KindConflict) }

// IsUpstream reports whether err is an upstream error.
func IsUpstream(err error) bool { return is(err, KindUpstream) }

// HTTPStatus maps an error to the status code the API layer should return.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
