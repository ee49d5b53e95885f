package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Wishlist synchronization error kinds. These classify every failure the
// widget engine can encounter so that renderers and logs can distinguish a
// dead network from a broken payload or a failed merge.
var (
	// ErrNetworkFailure marks a request that never produced a response
	// (connection refused, reset, timed out).
	ErrNetworkFailure = errors.New("network failure")

	// ErrServerError marks a non-2xx response from the wishlist API.
	ErrServerError = errors.New("server error")

	// ErrMalformedResponse marks a 2xx response whose payload could not be
	// decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrSyncFailed marks a failed guest-to-customer bulk merge. The guest
	// store is preserved when this is returned.
	ErrSyncFailed = errors.New("wishlist sync failed")

	// ErrActionFailed marks a failed single add/remove/fetch/search action.
	ErrActionFailed = errors.New("wishlist action failed")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error without the already-exists semantics.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// SyncFailed wraps a failed guest-to-customer bulk merge.
func SyncFailed(err error) *AppError {
	return &AppError{
		Code:    "SYNC_FAILED",
		Message: "failed to merge guest wishlist",
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrSyncFailed, err),
	}
}

// ActionFailed wraps a failed single wishlist action.
func ActionFailed(action string, err error) *AppError {
	return &AppError{
		Code:    "ACTION_FAILED",
		Message: fmt.Sprintf("wishlist %s failed", action),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrActionFailed, err),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Kind returns the wishlist error classification for an error, matching the
// toaster channel vocabulary. Returns an empty string for nil errors and
// "server-error" as the catch-all for everything unclassified.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSyncFailed):
		return "sync-failed"
	case errors.Is(err, ErrActionFailed):
		return "action-failed"
	case errors.Is(err, ErrNetworkFailure):
		return "network-failure"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed-response"
	default:
		return "server-error"
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
