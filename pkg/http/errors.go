package http

import (
	"fmt"
	"net/http"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code           string      `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	UpstreamStatus int         `json:"upstream_status,omitempty"`
	Status         int         `json:"-"`
	Err            error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// WithError wraps an underlying error. Its message becomes the details when none are set.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	if e.Details == nil && err != nil {
		e.Details = err.Error()
	}
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", message, http.StatusNotFound)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", message, http.StatusInternalServerError)
}

// InternalErrorf creates a 500 error with formatting.
func InternalErrorf(format string, a ...interface{}) *AppError {
	return InternalError(fmt.Sprintf(format, a...))
}

// DatabaseError creates a 500 error for a failed store operation.
func DatabaseError(message string, err error) *AppError {
	return NewAppError("ERR_DATABASE", message, http.StatusInternalServerError).WithError(err)
}

// UpstreamError creates a 500 error for a failed dependent call. upstreamStatus is
// surfaced to the client when non-zero.
func UpstreamError(message string, upstreamStatus int, err error) *AppError {
	e := NewAppError("ERR_UPSTREAM", message, http.StatusInternalServerError).WithError(err)
	e.UpstreamStatus = upstreamStatus
	return e
}
