// Package errutil defines the error taxonomy shared by every handler in
// the service. Each Error carries a Kind that maps to an HTTP status and a
// client-safe message; the wrapped cause is logged server-side but never
// sent to callers.
package errutil

import (
	"errors"
	"net/http"
)

// Kind categorizes a failure.
type Kind int

const (
	// KindBadRequest indicates missing or malformed caller input.
	KindBadRequest Kind = iota
	// KindUnauthorized indicates a missing or invalid bearer token.
	KindUnauthorized
	// KindForbidden indicates a signature or verify-token mismatch.
	KindForbidden
	// KindNotFound indicates a lookup miss.
	KindNotFound
	// KindUpstream indicates an external provider call failed.
	KindUpstream
	// KindConfig indicates a required setting is absent.
	KindConfig
	// KindStore indicates a persistence call failed.
	KindStore
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_error"
	case KindConfig:
		return "config_error"
	case KindStore:
		return "store_error"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind to the status code returned to callers.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		// Config and store failures surface as a generic 500.
		return http.StatusInternalServerError
	}
}

// Error is a categorized failure. Message is safe to return to callers;
// Err holds the internal cause for logging.
type Error struct {
	Kind    Kind
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

// New creates an Error with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error with a client-safe message and an internal cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error.
// Unclassified errors report as KindStore's generic 500 via ok=false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ClientMessage returns the caller-safe message for err. Unclassified
// errors get a generic message so internal detail never leaks.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong. Please try again later."
}
