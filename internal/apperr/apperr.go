// Package apperr defines the typed failures every operation boundary returns.
// Handlers translate kinds to HTTP statuses in exactly one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindConflict
	KindValidation
	KindInvalidToken
	KindInvalidCredentials
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) error {
	return &Error{Kind: KindUnauthorized, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func InvalidToken(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidToken, Msg: fmt.Sprintf(format, args...)}
}

func InvalidCredentials(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidCredentials, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(err error, kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or KindInternal if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status code its kind implies.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindValidation, KindInvalidToken:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
