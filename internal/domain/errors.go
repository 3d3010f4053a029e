package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a referenced item does not exist
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// Is allows errors.Is() to match against ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound: the referenced item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation: the request is structurally illegal (a move that
	// would create a cycle, a move onto itself). Distinct from validation
	// failures on the request shape.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrAccessDenied: the backing engine rejected the write at the storage
	// layer. This is a second check beneath the permission evaluator and is
	// reported on the side channel in addition to being returned.
	ErrAccessDenied = errors.New("access denied")

	// ErrConflict: the unit of work could not commit due to a concurrent
	// conflicting write. Retried a bounded number of times before surfacing.
	ErrConflict = errors.New("conflict")

	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// InvalidOperationError carries detail about a structurally illegal request
// (cycle creation, self-move). Implements HTTPError.
type InvalidOperationError struct {
	Message string // Human-readable error message
	ItemID  string // Item the operation targeted
}

// Error implements the error interface
func (e *InvalidOperationError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *InvalidOperationError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// Is allows errors.Is() to match against ErrInvalidOperation
func (e *InvalidOperationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// AccessDeniedError represents a storage-layer rejection. Implements
// HTTPError. Callers must be able to tell it apart from structural errors.
type AccessDeniedError struct {
	Message string
	ItemID  string
}

// Error implements the error interface
func (e *AccessDeniedError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *AccessDeniedError) StatusCode() int {
	return http.StatusForbidden
}

// Is allows errors.Is() to match against ErrAccessDenied
func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// ConflictError represents a commit conflict with detail about the resource
// involved. Implements HTTPError.
type ConflictError struct {
	Message      string
	ResourceType string // Type of resource (item, grant)
	ResourceID   string // ID of the conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
