package utils

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// AppError represents an application error with context
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	StackTrace string `json:"stack_trace,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError creates a new application error
func NewAppError(code, message string, details ...string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	err := &AppError{
		Code:    code,
		Message: message,
		File:    file,
		Line:    line,
	}

	if len(details) > 0 {
		err.Details = details[0]
	}

	return err
}

// WithStackTrace adds stack trace to the error
func (e *AppError) WithStackTrace() *AppError {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	e.StackTrace = string(buf[:n])
	return e
}

// Common error codes
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeConflict       = "CONFLICT_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeStorageTimeout = "STORAGE_TIMEOUT"
	ErrCodeDispatch       = "DISPATCH_ERROR"
	ErrCodeDatabase       = "DATABASE_ERROR"
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeExternal       = "EXTERNAL_ERROR"
)

// NewValidationError builds a VALIDATION_ERROR from per-field messages.
func NewValidationError(message string, fields map[string]string) *AppError {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+fields[key])
	}

	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Details: strings.Join(parts, "; "),
	}
}

// hasCode reports whether err is an AppError with the given code.
func hasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound reports whether err represents a missing record.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsConflict reports whether err represents a unique-constraint race.
func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

// IsValidation reports whether err represents a rejected payload.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsTimeout reports whether err represents a timed-out storage call.
// Context deadline expiry counts: storage calls run under per-call
// deadlines and expiry is treated as transient.
func IsTimeout(err error) bool {
	if hasCode(err, ErrCodeStorageTimeout) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
