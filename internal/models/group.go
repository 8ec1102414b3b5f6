// File: internal/models/group.go
package models

import (
	"time"
)

// ErrorGroup is the deduplication bucket for events sharing a fingerprint
type ErrorGroup struct {
	ID               string      `json:"id" db:"id"`
	Fingerprint      string      `json:"fingerprint" db:"fingerprint"`
	ErrorType        ErrorType   `json:"error_type" db:"error_type"`
	Severity         Severity    `json:"severity" db:"severity"`
	Source           string      `json:"source" db:"source"`
	MessagePattern   string      `json:"message_pattern" db:"message_pattern"`
	Status           ErrorStatus `json:"status" db:"status"`
	AssignedTo       string      `json:"assigned_to,omitempty" db:"assigned_to"`
	Notes            string      `json:"notes,omitempty" db:"notes"`
	TotalOccurrences int64       `json:"total_occurrences" db:"total_occurrences"`
	FirstSeen        time.Time   `json:"first_seen" db:"first_seen"`
	LastSeen         time.Time   `json:"last_seen" db:"last_seen"`
}

// GroupFilter selects error groups for list queries
type GroupFilter struct {
	ErrorType *ErrorType   `json:"error_type,omitempty"`
	Severity  *Severity    `json:"severity,omitempty"`
	Source    *string      `json:"source,omitempty"`
	Status    *ErrorStatus `json:"status,omitempty"`
}

// GroupUpdate carries the mutable fields of an error group
type GroupUpdate struct {
	Status     *ErrorStatus `json:"status,omitempty"`
	AssignedTo *string      `json:"assigned_to,omitempty"`
	Notes      *string      `json:"notes,omitempty"`
}

// Validate checks an update payload.
func (u *GroupUpdate) Validate() map[string]string {
	if u.Status != nil && !u.Status.IsValid() {
		return map[string]string{"status": "unknown status"}
	}
	return nil
}
