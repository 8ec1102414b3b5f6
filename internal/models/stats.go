// File: internal/models/stats.go
package models

// StatsSummary aggregates error counts over a trailing period of days
type StatsSummary struct {
	TotalErrors int64                 `json:"total_errors"`
	BySeverity  map[Severity]int64    `json:"by_severity"`
	ByStatus    map[ErrorStatus]int64 `json:"by_status"`
	ByType      map[ErrorType]int64   `json:"by_type"`
	BySource    map[string]int64      `json:"by_source"`
	ErrorRate   float64               `json:"error_rate"`
	PeriodDays  int                   `json:"period_days"`
}

// TimelinePoint is one day's error count in the timeline view
type TimelinePoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// TopError is one entry in the most-frequent-errors view
type TopError struct {
	Message   string    `json:"message"`
	ErrorType ErrorType `json:"error_type"`
	Count     int64     `json:"count"`
}
