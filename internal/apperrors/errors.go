// Package apperrors defines the error taxonomy shared by the account and channel services
// and its mapping onto HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindInvalidToken
	KindExpiredOrRevoked
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidToken:
		return "invalid_token"
	case KindExpiredOrRevoked:
		return "expired_or_revoked"
	default:
		return "internal"
	}
}

// StatusCode returns the HTTP status for the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized, KindInvalidToken, KindExpiredOrRevoked:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is an error with a kind and a client-facing message. Err holds the cause, which is
// logged but never sent to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindConflict})
// works regardless of message.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && (other.Message == "" || other.Message == e.Message)
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error   { return newError(KindValidation, message, nil) }
func Unauthorized(message string) *Error { return newError(KindUnauthorized, message, nil) }
func NotFound(message string) *Error     { return newError(KindNotFound, message, nil) }
func Conflict(message string) *Error     { return newError(KindConflict, message, nil) }
func InvalidToken(message string) *Error { return newError(KindInvalidToken, message, nil) }

// ExpiredOrRevoked reports a refresh token that no longer matches the stored session.
func ExpiredOrRevoked(message string) *Error {
	return newError(KindExpiredOrRevoked, message, nil)
}

// Internal wraps an unexpected failure. The cause is kept for logging.
func Internal(message string, err error) *Error {
	return newError(KindInternal, message, err)
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status code for err.
func StatusOf(err error) int {
	return KindOf(err).StatusCode()
}

// MessageOf returns the client-facing message for err. Errors outside the taxonomy are
// reported generically so internal details do not leak.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal server error"
}
