// Package errors defines the typed error taxonomy shared by the study service,
// the HTTP API and the Telegram handlers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. They are part of the HTTP error payload, so treat them as API.
const (
	CodeUnknown               = "UNKNOWN"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeTranscriptUnavailable = "TRANSCRIPT_UNAVAILABLE"
	CodeUpstream              = "UPSTREAM"
	CodeNotFound              = "NOT_FOUND"
	CodeRateLimited           = "RATE_LIMITED"
	CodeDatabase              = "DATABASE"
	CodeConfig                = "CONFIG"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInternal              = "INTERNAL"
)

// ApplicationError is implemented by every error created in this package.
type ApplicationError interface {
	error
	Code() string
	Message() string
	Unwrap() error
}

// Error is the concrete ApplicationError.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

// Code returns the machine readable error code.
func (e *Error) Code() string {
	return e.code
}

// Message returns the message without the wrapped cause.
func (e *Error) Message() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if there is none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return Code(err) == code
}

// HTTPStatus maps an error code to the status returned by the HTTP API.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidInput, CodeTranscriptUnavailable:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage renders err for API clients. Application errors expose their
// full chain, anything else collapses to a generic message.
func PublicMessage(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return "internal error"
}

func newError(code, message string, cause error) error {
	return &Error{code: code, message: message, err: cause}
}

func NewValidationError(message string, cause error) error {
	return newError(CodeInvalidInput, message, cause)
}

func NewTranscriptError(message string, cause error) error {
	return newError(CodeTranscriptUnavailable, message, cause)
}

func NewUpstreamError(message string, cause error) error {
	return newError(CodeUpstream, message, cause)
}

func NewNotFoundError(message string) error {
	return newError(CodeNotFound, message, nil)
}

func NewRateLimitedError(message string) error {
	return newError(CodeRateLimited, message, nil)
}

func NewDatabaseError(message string, cause error) error {
	return newError(CodeDatabase, message, cause)
}

func NewConfigError(message string, cause error) error {
	return newError(CodeConfig, message, cause)
}

func NewUnauthorizedError(message string) error {
	return newError(CodeUnauthorized, message, nil)
}

func NewInternalError(message string, cause error) error {
	return newError(CodeInternal, message, cause)
}
