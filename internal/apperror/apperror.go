package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrDuplicate     = errors.New("duplicate name")
	ErrForbidden     = errors.New("forbidden")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrPersistence   = errors.New("persistence error")
	ErrCorrupt       = errors.New("corrupt state")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with key %s", resource, key),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Duplicate(resource, key string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: fmt.Sprintf("%s already exists with key %s", resource, key),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// QuotaExceeded reports that the per-day submission ceiling was reached.
func QuotaExceeded(userID string, limit int) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: fmt.Sprintf("user %s reached the daily submission limit of %d", userID, limit),
	}
}

// Persistence wraps an I/O failure during save. The in-memory mutation that
// triggered the save is not rolled back; callers surface this to the user.
func Persistence(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrPersistence, err),
		Message: fmt.Sprintf("failed to persist %s", op),
	}
}

// Corrupt marks a collection file that could not be parsed. Only produced at
// load time; backup fallback absorbs it before any caller sees it.
func Corrupt(file string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrCorrupt, err),
		Message: fmt.Sprintf("collection file %s is corrupt", file),
	}
}
