package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Details carries machine-readable context for an error, rendered verbatim
// in the response body so the transport layer never has to re-derive it.
type Details map[string]interface{}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Status  int     `json:"status"`
	Details Details `json:"details,omitempty"`
	Err     error   `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors covering the closed domain taxonomy.
var (
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// ErrCacheMiss signals a cache lookup found nothing. It stays inside
// the service layer and never reaches a response.
var ErrCacheMiss = errors.New("cache miss")

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of the error carrying structured context.
func WithDetails(err *Error, message string, details Details) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	clone.Details = details
	return clone
}

// Validation reports a malformed field value or violated constraint.
func Validation(field string, constraint string) *Error {
	return WithDetails(ErrValidation,
		fmt.Sprintf("validation failed for field '%s': %s", field, constraint),
		Details{"field": field, "constraint": constraint})
}

// NotFound reports a missing entity by resource name and identifier.
func NotFound(resource string, id int64) *Error {
	return WithDetails(ErrNotFound,
		fmt.Sprintf("%s with ID %d not found", resource, id),
		Details{"resource": resource, "id": id})
}

// Forbidden reports insufficient role for an operation, carrying the
// required role set and the actor's actual role.
func Forbidden(operation string, required []string, actual string) *Error {
	return WithDetails(ErrForbidden,
		fmt.Sprintf("insufficient permissions to %s", operation),
		Details{"operation": operation, "requiredRoles": required, "currentRole": actual})
}
