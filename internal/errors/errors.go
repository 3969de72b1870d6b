// Package errors defines the application error taxonomy shared by the
// tournament controller, the rating stores, and the HTTP layer.
package errors

import "fmt"

// Error codes
const (
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeConflict    = "CONFLICT"
	ErrCodeIntegrity   = "INTEGRITY_ERROR"
	ErrCodePersistence = "PERSISTENCE_ERROR"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// AppError carries an error code, a human-readable message, and the HTTP
// status the API layer should answer with.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error // wrapped underlying error (optional)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports rejected admin input; no state was changed.
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewConflictError reports an operation illegal in the current state,
// such as creating a tournament while one is running.
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  409,
	}
}

// NewNotFoundError creates a new NOT_FOUND error.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewIntegrityError reports state that no longer fits the bracket shape.
func NewIntegrityError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeIntegrity,
		Message: message,
		Status:  500,
	}
}

// NewPersistenceError wraps a failed state write so admins see it.
func NewPersistenceError(err error) *AppError {
	return &AppError{
		Code:    ErrCodePersistence,
		Message: "failed to persist state",
		Status:  500,
		Err:     err,
	}
}

// NewInternalError creates a new INTERNAL_ERROR.
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}
