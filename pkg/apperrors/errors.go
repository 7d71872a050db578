package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrRateLimited = errors.New("too many concurrent analyses")
)

// Code is the machine-readable error code surfaced at the API boundary.
type Code string

const (
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeNotFound          Code = "NOT_FOUND"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeGatewayTimeout    Code = "GATEWAY_TIMEOUT"
	CodeAIProviderDown    Code = "AI_PROVIDER_DOWN"
	CodeAIValidationError Code = "AI_VALIDATION_ERROR"
	CodeAIQualityError    Code = "AI_QUALITY_ERROR"
	CodeInternal          Code = "INTERNAL"
)

// AppError carries both a user-safe message and an internal diagnostic.
// The internal diagnostic is only exposed outside in development mode.
type AppError struct {
	Code     Code   // Machine-readable code for API clients
	Message  string // User-safe message
	Internal string // Internal diagnostic, never shown outside development
	Cause    error  // Underlying error, if any
}

func (e *AppError) Error() string {
	if e.Internal != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the failure is transient, keyed off the error
// code. Message text is never consulted: it may quote arbitrary AI output,
// and a rejected draft mentioning "429" or "timeout" is still a permanent
// verdict. Quality and validation failures are regenerated, not retried.
func (e *AppError) IsRetryable() bool {
	switch e.Code {
	case CodeRateLimited, CodeGatewayTimeout:
		return true
	default:
		return false
	}
}

// New creates an AppError with a user-safe message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError that preserves the underlying error as both the
// internal diagnostic and the unwrap target.
func Wrap(code Code, message string, cause error) *AppError {
	internal := ""
	if cause != nil {
		internal = cause.Error()
	}
	return &AppError{Code: code, Message: message, Internal: internal, Cause: cause}
}

// HTTPStatus maps an error code to its HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeGatewayTimeout:
		return http.StatusGatewayTimeout
	case CodeAIProviderDown:
		return http.StatusBadGateway
	case CodeAIValidationError, CodeAIQualityError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// AsAppError extracts an AppError from err, or wraps err as INTERNAL.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodeInternal, "something went wrong", err)
}
