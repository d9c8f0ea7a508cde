// Package errors provides coded domain errors for bookstack-sync.
//
// Every failure that crosses a package boundary carries one of the codes
// below, so callers can classify it without inspecting transport details:
//
//	// In the BookStack client - status codes are mapped once
//	if resp.StatusCode == http.StatusUnauthorized {
//	    return errors.Unauthorized("token rejected by instance")
//	}
//
//	// In callers - check with errors.Is against a sentinel
//	if errors.Is(err, errors.ErrUnauthorized) {
//	    // credential problem, not a network problem
//	}
//
//	// Or switch on the code
//	if code, ok := errors.CodeOf(err); ok && code == errors.CodeTransport {
//	    // safe to retry a read
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the sync taxonomy.
const (
	CodeUnauthorized       Code = "AUTH"
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION"
	CodeTransport          Code = "TRANSPORT"
	CodeUnsupportedContent Code = "UNSUPPORTED_CONTENT"
	CodeServer             Code = "SERVER"
	CodeDownload           Code = "DOWNLOAD"
	CodeCanceled           Code = "CANCELED"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the status the service's own API answers with for a code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnsupportedContent:
		return http.StatusUnprocessableEntity
	case CodeTransport, CodeServer, CodeDownload:
		return http.StatusBadGateway
	case CodeCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a read that failed with this code may be retried.
func (c Code) Retryable() bool {
	return c == CodeTransport
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrTransport          = &Error{Code: CodeTransport, Message: "transport error"}
	ErrUnsupportedContent = &Error{Code: CodeUnsupportedContent, Message: "unsupported content"}
	ErrServer             = &Error{Code: CodeServer, Message: "server error"}
	ErrDownload           = &Error{Code: CodeDownload, Message: "download failed"}
	ErrCanceled           = &Error{Code: CodeCanceled, Message: "canceled"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Unauthorized creates an authentication error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Transport creates a transport error wrapping the network failure.
func Transport(msg string, cause error) *Error {
	return &Error{Code: CodeTransport, Message: msg, cause: cause}
}

// UnsupportedContentf creates an unsupported content error with formatted message.
func UnsupportedContentf(format string, args ...any) *Error {
	return &Error{Code: CodeUnsupportedContent, Message: fmt.Sprintf(format, args...)}
}

// Server creates a server error.
func Server(msg string) *Error {
	return &Error{Code: CodeServer, Message: msg}
}

// Serverf creates a server error with formatted message.
func Serverf(format string, args ...any) *Error {
	return &Error{Code: CodeServer, Message: fmt.Sprintf(format, args...)}
}

// Download creates a download error wrapping cause.
func Download(msg string, cause error) *Error {
	return &Error{Code: CodeDownload, Message: msg, cause: cause}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
