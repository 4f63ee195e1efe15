package errors

import (
	stderrors "errors"
	"net/http"
)

// Code is the caller-facing error kind.
type Code string

const (
	CodeInvalidArgument    Code = "invalid-argument"
	CodeNotFound           Code = "not-found"
	CodePermissionDenied   Code = "permission-denied"
	CodeResourceExhausted  Code = "resource-exhausted"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeInternal           Code = "internal"
)

// Error carries a Code, a message safe to show to the caller and an optional cause.
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

// New returns an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns an Error with err as its cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrUnauthorized        = New(CodePermissionDenied, "authentication required")
	ErrForbidden           = New(CodePermissionDenied, "operation is forbidden for user")
	ErrMissingArguments    = New(CodeInvalidArgument, "required data is missing")
	ErrEventNotFound       = New(CodeNotFound, "event not found")
	ErrUserNotFound        = New(CodeNotFound, "user profile not found")
	ErrReservationNotFound = New(CodeNotFound, "reservation not found")
	ErrSoldOut             = New(CodeFailedPrecondition, "tickets are sold out")
	ErrInvalidTransition   = New(CodeFailedPrecondition, "reservation status does not allow this change")
	ErrRateLimited         = New(CodeResourceExhausted, "rate limit exceeded")
)

// CodeOf returns the Code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Public returns the caller-visible form of err. Unclassified errors become a
// generic internal error; the cause stays in server-side logs.
func Public(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) && e.Code != CodeInternal {
		return &Error{Code: e.Code, Message: e.Message}
	}
	return New(CodeInternal, "an internal error occurred")
}

// HTTPStatus maps a Code to a response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusUnauthorized
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks err as a transient failure that may succeed when repeated.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var r *retryableError
	return stderrors.As(err, &r)
}
