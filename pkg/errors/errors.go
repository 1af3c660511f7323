package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures of the album downloader
type ErrorType string

const (
	ErrorTypeNetwork                  ErrorType = "network"
	ErrorTypeHTTP                     ErrorType = "http"
	ErrorTypeProtocolMismatch         ErrorType = "protocol_mismatch"
	ErrorTypeAuthenticationIncomplete ErrorType = "authentication_incomplete"
	ErrorTypeSessionExpired           ErrorType = "session_expired"
	ErrorTypeMalformedPayload         ErrorType = "malformed_payload"
	ErrorTypeUnsupportedPlatform      ErrorType = "unsupported_platform"
	ErrorTypeToolNotFound             ErrorType = "tool_not_found"
	ErrorTypeUnknownValue             ErrorType = "unknown_value"
	ErrorTypePageLimit                ErrorType = "page_limit"
)

// Error is a typed failure. Code carries the HTTP status for ErrorTypeHTTP and is 0 otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given type
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given type around a cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// HTTPStatus creates an ErrorTypeHTTP error for a non-success status code
func HTTPStatus(code int, url string) *Error {
	return &Error{
		Type:    ErrorTypeHTTP,
		Message: fmt.Sprintf("unexpected status for %s", url),
		Code:    code,
	}
}

// TypeOf returns the type of the first *Error in err's chain, or "" if there is none
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsType reports whether err's chain contains an *Error of type t
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeHTTP:
		return IsRetryableStatusCode(e.Code)
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient failure
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
