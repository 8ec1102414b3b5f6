// File: internal/models/error.go
package models

import (
	"time"
)

// ErrorType classifies the origin of a reported error.
type ErrorType string

const (
	ErrorTypeHTTP        ErrorType = "HTTP"
	ErrorTypeDatabase    ErrorType = "DATABASE"
	ErrorTypeAuth        ErrorType = "AUTH"
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypePerformance ErrorType = "PERFORMANCE"
	ErrorTypeIntegration ErrorType = "INTEGRATION"
	ErrorTypeApplication ErrorType = "APPLICATION"
	ErrorTypeFrontend    ErrorType = "FRONTEND"
)

// ErrorTypes lists all valid error types.
var ErrorTypes = []ErrorType{
	ErrorTypeHTTP, ErrorTypeDatabase, ErrorTypeAuth, ErrorTypeValidation,
	ErrorTypePerformance, ErrorTypeIntegration, ErrorTypeApplication, ErrorTypeFrontend,
}

// IsValid reports whether t is a known error type.
func (t ErrorType) IsValid() bool {
	for _, known := range ErrorTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Severity is the ordered severity of an error occurrence.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists all valid severities in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the numeric position of s in the severity ordering.
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	return s.Rank() >= 0
}

// ErrorStatus tracks the triage state of an error or group.
type ErrorStatus string

const (
	StatusOpen       ErrorStatus = "OPEN"
	StatusInProgress ErrorStatus = "IN_PROGRESS"
	StatusResolved   ErrorStatus = "RESOLVED"
	StatusIgnored    ErrorStatus = "IGNORED"
)

// ErrorStatuses lists all valid statuses.
var ErrorStatuses = []ErrorStatus{StatusOpen, StatusInProgress, StatusResolved, StatusIgnored}

// IsValid reports whether s is a known status.
func (s ErrorStatus) IsValid() bool {
	for _, known := range ErrorStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ErrorEvent represents a single reported error occurrence
type ErrorEvent struct {
	ID         string            `json:"id" db:"id"`
	GroupID    string            `json:"group_id,omitempty" db:"group_id"`
	Message    string            `json:"message" db:"message"`
	ErrorType  ErrorType         `json:"error_type" db:"error_type"`
	Severity   Severity          `json:"severity" db:"severity"`
	Source     string            `json:"source" db:"source"`
	StackTrace string            `json:"stack_trace,omitempty" db:"stack_trace"`
	Endpoint   string            `json:"endpoint,omitempty" db:"endpoint"`
	Method     string            `json:"method,omitempty" db:"method"`
	StatusCode *int              `json:"status_code,omitempty" db:"status_code"`
	UserID     string            `json:"user_id,omitempty" db:"user_id"`
	IPAddress  string            `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string            `json:"user_agent,omitempty" db:"user_agent"`
	Metadata   map[string]string `json:"metadata,omitempty" db:"metadata"`
	Status     ErrorStatus       `json:"status" db:"status"`
	AssignedTo string            `json:"assigned_to,omitempty" db:"assigned_to"`
	Notes      string            `json:"notes,omitempty" db:"notes"`
	Timestamp  time.Time         `json:"timestamp" db:"timestamp"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Validate checks an incoming event before any state mutation.
func (e *ErrorEvent) Validate() map[string]string {
	fields := make(map[string]string)
	if e.Message == "" {
		fields["message"] = "message is required"
	}
	if !e.ErrorType.IsValid() {
		fields["error_type"] = "unknown error type"
	}
	if !e.Severity.IsValid() {
		fields["severity"] = "unknown severity"
	}
	if e.Source == "" {
		fields["source"] = "source is required"
	}
	if e.Status != "" && !e.Status.IsValid() {
		fields["status"] = "unknown status"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ErrorFilter selects error events for list queries
type ErrorFilter struct {
	ErrorType *ErrorType   `json:"error_type,omitempty"`
	Severity  *Severity    `json:"severity,omitempty"`
	Source    *string      `json:"source,omitempty"`
	Status    *ErrorStatus `json:"status,omitempty"`
	GroupID   *string      `json:"group_id,omitempty"`
	Search    *string      `json:"search,omitempty"`
	StartDate *time.Time   `json:"start_date,omitempty"`
	EndDate   *time.Time   `json:"end_date,omitempty"`
	Skip      int          `json:"skip,omitempty"`
	Limit     int          `json:"limit,omitempty"`
}

// ErrorUpdate carries the mutable fields of an error event
type ErrorUpdate struct {
	Status     *ErrorStatus `json:"status,omitempty"`
	AssignedTo *string      `json:"assigned_to,omitempty"`
	Notes      *string      `json:"notes,omitempty"`
}

// Validate checks an update payload.
func (u *ErrorUpdate) Validate() map[string]string {
	if u.Status != nil && !u.Status.IsValid() {
		return map[string]string{"status": "unknown status"}
	}
	return nil
}
