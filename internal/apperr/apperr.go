// Package apperr provides the coded error type shared by services, repositories and handlers
package apperr

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for retry policy and user messaging
type Code uint8

const (
	// Unknown is for unclassified errors
	Unknown Code = iota

	// Unregistered means the owner identity could not be resolved to a persisted account
	Unregistered

	// ValidationFailed is for malformed drafts and votes on closed listings
	ValidationFailed

	// Unauthenticated means the caller has no resolved non-guest identity
	Unauthenticated

	// StoreUnavailable means the backend is unreachable or misconfigured
	StoreUnavailable

	// Conflict means a concurrent mutation won; the caller retries
	Conflict

	// NotFound is for missing listings
	NotFound
)

func (c Code) String() string {
	switch c {
	case Unregistered:
		return "unregistered"
	case ValidationFailed:
		return "validation_failed"
	case Unauthenticated:
		return "unauthenticated"
	case StoreUnavailable:
		return "store_unavailable"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// MarshalText renders the code for JSON
func (c Code) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Error is a failure with a code, a developer message, an optional field and a cause
type Error struct {
	orig  error
	msg   string
	code  Code
	field string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() Code { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// New returns a new *Error with the given code and message
func New(code Code, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code Code, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code Code, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Field returns a ValidationFailed error pointing at one input field
func Field(field, msg string) error {
	return &Error{code: ValidationFailed, msg: msg, field: field}
}

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf extracts a Code from any error, defaulting to Unknown
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.code
	}
	return Unknown
}

// IsCode reports whether err carries the given code
func IsCode(err error, code Code) bool { return CodeOf(err) == code }

// HTTPStatus maps any error to an HTTP status
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ValidationFailed:
		return http.StatusUnprocessableEntity
	case Unauthenticated:
		return http.StatusUnauthorized
	case Unregistered:
		return http.StatusForbidden
	case StoreUnavailable:
		return http.StatusServiceUnavailable
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the short text shown in the Mini App toast
func UserMessage(err error) string {
	e, ok := As(err)
	if !ok {
		return "Something went wrong, please try again"
	}
	switch e.code {
	case ValidationFailed:
		// validation messages are already written for people
		if e.msg != "" {
			return e.msg
		}
		return "Check the listing fields and try again"
	case Unauthenticated:
		return "Open the app from Telegram to do this"
	case Unregistered:
		return "Your account could not be registered, please reopen the app"
	case StoreUnavailable:
		return "The market is offline right now, showing cached listings"
	case Conflict:
		return "Too many people clicked at once, please try again"
	case NotFound:
		return "This listing no longer exists"
	default:
		return "Something went wrong, please try again"
	}
}
