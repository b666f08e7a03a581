package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the one error shape handlers translate into HTTP responses.
// Message is safe to show to the client; Cause never leaves the process.
type AppError struct {
	Code     string
	Message  string
	HTTPCode int
	Cause    error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeDependency       = "DEPENDENCY_ERROR"
)

func Validation(message string) *AppError {
	return &AppError{
		Code:     CodeValidationFailed,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
	}
}

func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:     CodeUnauthenticated,
		Message:  message,
		HTTPCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:     CodeForbidden,
		Message:  message,
		HTTPCode: http.StatusForbidden,
	}
}

func NotFound(message string) *AppError {
	return &AppError{
		Code:     CodeNotFound,
		Message:  message,
		HTTPCode: http.StatusNotFound,
	}
}

func Dependency(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeDependency,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// From extracts an *AppError, wrapping anything else as a dependency failure
// so no internal detail reaches the client.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Dependency("Internal server error", err)
}
