// Package apperr defines the error kinds shared by the service and handler
// layers. Every failure that leaves a service is an *Error tagged with one of
// four kinds, so handlers can pick the HTTP status without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind int

const (
	// KindValidation marks malformed or missing input. Always raised before
	// any mutation.
	KindValidation Kind = iota + 1
	// KindNotFound marks a reference to a reservation or table that does not exist.
	KindNotFound
	// KindConflict marks an invariant violation: occupied table, reservation
	// already seated, insufficient capacity and similar.
	KindConflict
	// KindStorage marks a persistence failure. The message is not shown to clients.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// HTTPStatus maps the kind to the status code used in API responses.
// Conflicts are reported as 400 to match the public API contract.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Error is a tagged error carrying a client-facing message and an optional cause.
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

// Validation returns a KindValidation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error with a formatted message.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error with a formatted message.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence failure. msg describes the operation that failed.
func Storage(err error, msg string) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error count as storage
// failures, since they can only come from below the service layer.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStorage
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
