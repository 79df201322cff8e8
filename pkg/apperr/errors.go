// Package apperr defines the tagged error kinds surfaced by the organization
// engine and helpers to classify arbitrary errors into one of those kinds.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the kind of failure an operation produced.
type Code string

const (
	CodeBadRequest       Code = "bad_request"
	CodeNotAuthenticated Code = "not_authenticated"
	CodePermissionDenied Code = "permission_denied"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeInternal         Code = "internal"
)

// Error is a failure carrying a Code. It supports errors.As/Is and wrapping.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// BadRequest creates a CodeBadRequest error.
func BadRequest(format string, args ...interface{}) *Error {
	return New(CodeBadRequest, format, args...)
}

// NotAuthenticated creates a CodeNotAuthenticated error.
func NotAuthenticated(format string, args ...interface{}) *Error {
	return New(CodeNotAuthenticated, format, args...)
}

// PermissionDenied creates a CodePermissionDenied error.
func PermissionDenied(format string, args ...interface{}) *Error {
	return New(CodePermissionDenied, format, args...)
}

// NotFound creates a CodeNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return New(CodeNotFound, format, args...)
}

// Conflict creates a CodeConflict error.
func Conflict(format string, args ...interface{}) *Error {
	return New(CodeConflict, format, args...)
}

// Internal creates a CodeInternal error.
func Internal(format string, args ...interface{}) *Error {
	return New(CodeInternal, format, args...)
}

// CodeOf returns the code carried by err, unwrapping as needed.
// Errors without a code classify as CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an error code to an HTTP status code.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
