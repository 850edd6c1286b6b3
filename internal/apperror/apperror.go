// Package apperror defines the application's error taxonomy.
//
// Services return these domain errors; handlers translate them to HTTP
// status codes with errors.Is/errors.As. The service layer never deals in
// status codes and the handler layer never invents error categories.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for each category. Check with errors.Is — every AppError
// wraps exactly one of these via Unwrap.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError carries a category (Err), a human-readable message, and for
// validation errors the first offending field.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that a resource does not exist. Handlers map it to 404.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports the first input violation found. The field name
// tells API clients which input to highlight. Handlers map it to 400.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation. Handlers map it to 409.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden reports that the caller lacks permission for an operation on a
// resource it can see (e.g. deleting the default collection). Handlers map
// it to 403. Note that search never returns Forbidden — out-of-scope data is
// simply absent from results.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports a failed authentication attempt. Handlers map it
// to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
