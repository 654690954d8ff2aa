// Package apperr is the client-facing error taxonomy. Auth, session and
// realtime code convert internal failures into one of these kinds before an
// error reaches an HTTP response or a WebSocket error frame.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConfig       = errors.New("config")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad_request")
	ErrNotFound     = errors.New("not_found")
)

// Error carries a kind and a message that is safe to show to clients.
// Cause is for logs only.
type Error struct {
	Op    string
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func New(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

func Wrap(op string, kind error, msg string, cause error) error {
	return &Error{Op: op, Kind: kind, Msg: msg, Cause: cause}
}

func Unauthorized(op string) error { return New(op, ErrUnauthorized, "Unauthorized") }

func Forbidden(op string) error { return New(op, ErrForbidden, "Forbidden") }

func BadRequest(op, msg string) error { return New(op, ErrBadRequest, msg) }

func NotFound(op, msg string) error { return New(op, ErrNotFound, msg) }

// Status maps err to an HTTP status. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != ErrConfig {
		if ae.Msg != "" {
			return ae.Msg
		}
		return http.StatusText(Status(err))
	}
	return "Internal Server Error"
}
