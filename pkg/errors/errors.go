package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid username or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	// ErrInvalidRequest covers caller mistakes detected before any I/O is
	// attempted: missing location, malformed ids, bad pagination values.
	ErrInvalidRequest = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	// ErrUpstreamTimeout indicates the third-party API did not answer within
	// the configured window.
	ErrUpstreamTimeout = &AppError{
		Code:       "UPSTREAM_TIMEOUT",
		Message:    "Upstream service timed out",
		StatusCode: http.StatusGatewayTimeout,
	}

	// ErrUpstreamUnreachable indicates a transport-level failure (DNS,
	// connection refused, TLS) before any HTTP status was received.
	ErrUpstreamUnreachable = &AppError{
		Code:       "UPSTREAM_UNREACHABLE",
		Message:    "Upstream service unreachable",
		StatusCode: http.StatusBadGateway,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation failures with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrInvalidRequest.Code,
		Message:    message,
		StatusCode: ErrInvalidRequest.StatusCode,
	}
}

// NewUpstreamRejected captures a non-2xx upstream response. The status of the
// resulting error mirrors the upstream's own status so the boundary layer can
// relay it, and the upstream body is kept for diagnostics.
func NewUpstreamRejected(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	statusCode := status
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusBadGateway
	}
	return &AppError{
		Code:       "UPSTREAM_REJECTED",
		Message:    fmt.Sprintf("Upstream responded %d: %s", status, message),
		StatusCode: statusCode,
	}
}

// IsTransient reports whether an upstream failure is worth a single retry:
// timeouts, transport failures, and 429/502/503/504 responses.
func IsTransient(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		return false
	}
	switch appErr.Code {
	case ErrUpstreamTimeout.Code, ErrUpstreamUnreachable.Code:
		return true
	case "UPSTREAM_REJECTED":
		switch appErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}
