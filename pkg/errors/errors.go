package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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

// Predefined errors for common scenarios. Tenant mismatches are reported as
// ErrNotFound so callers cannot probe for entities in other institutes.
var (
	ErrNotFound                 = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized             = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden                = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrValidation               = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInvalidTransition        = New("INVALID_TRANSITION", http.StatusConflict, "invalid status transition")
	ErrCapacityExceeded         = New("CAPACITY_EXCEEDED", http.StatusConflict, "course offering is full")
	ErrAlreadyEnrolled          = New("ALREADY_ENROLLED", http.StatusConflict, "student already enrolled")
	ErrNotEnrolled              = New("NOT_ENROLLED", http.StatusConflict, "student not enrolled")
	ErrDuplicateSession         = New("DUPLICATE_SESSION", http.StatusConflict, "attendance session already exists")
	ErrLateSubmissionDisallowed = New("LATE_SUBMISSION_DISALLOWED", http.StatusUnprocessableEntity, "late submissions are not accepted")
	ErrAttendanceIneligible     = New("ATTENDANCE_INELIGIBLE", http.StatusUnprocessableEntity, "attendance below eligibility threshold")
	ErrInternal                 = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss                = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)

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
