// File: internal/models/alert.go
package models

import (
	"encoding/json"
	"time"
)

// AlertCondition is the predicate type an alert rule evaluates.
type AlertCondition string

const (
	ConditionErrorCount    AlertCondition = "ERROR_COUNT"
	ConditionErrorRate     AlertCondition = "ERROR_RATE"
	ConditionCriticalError AlertCondition = "CRITICAL_ERROR"
	ConditionNewErrorType  AlertCondition = "NEW_ERROR_TYPE"
	ConditionErrorSpike    AlertCondition = "ERROR_SPIKE"
)

// AlertConditions lists all valid conditions.
var AlertConditions = []AlertCondition{
	ConditionErrorCount, ConditionErrorRate, ConditionCriticalError,
	ConditionNewErrorType, ConditionErrorSpike,
}

// IsValid reports whether c is a known condition.
func (c AlertCondition) IsValid() bool {
	for _, known := range AlertConditions {
		if c == known {
			return true
		}
	}
	return false
}

// NotificationChannel identifies an outbound delivery channel.
type NotificationChannel string

const (
	ChannelSlack   NotificationChannel = "SLACK"
	ChannelWebhook NotificationChannel = "WEBHOOK"
	ChannelDiscord NotificationChannel = "DISCORD"
	ChannelEmail   NotificationChannel = "EMAIL"
)

// NotificationChannels lists all valid channels.
var NotificationChannels = []NotificationChannel{
	ChannelSlack, ChannelWebhook, ChannelDiscord, ChannelEmail,
}

// IsValid reports whether c is a known channel.
func (c NotificationChannel) IsValid() bool {
	for _, known := range NotificationChannels {
		if c == known {
			return true
		}
	}
	return false
}

// ChannelConfig is the per-channel delivery target.
type ChannelConfig struct {
	Recipient string `json:"recipient"`
}

// ConditionParams is the raw condition parameter document as stored and
// transported. The engine decodes it into the typed structs below keyed
// by the rule's condition.
type ConditionParams map[string]interface{}

// ErrorCountParams parameterizes ERROR_COUNT.
type ErrorCountParams struct {
	Threshold         int `json:"threshold"`
	TimeWindowMinutes int `json:"time_window_minutes"`
}

// ErrorRateParams parameterizes ERROR_RATE. Threshold is events per minute.
type ErrorRateParams struct {
	Threshold         float64 `json:"threshold"`
	TimeWindowMinutes int     `json:"time_window_minutes"`
}

// ErrorSpikeParams parameterizes ERROR_SPIKE. The short window count is
// compared against the trailing baseline window normalized to the short
// window's length; when the baseline is empty, MinCount is the floor.
type ErrorSpikeParams struct {
	SpikeMultiplier       float64 `json:"spike_multiplier"`
	TimeWindowMinutes     int     `json:"time_window_minutes"`
	BaselineWindowMinutes int     `json:"baseline_window_minutes"`
	MinCount              int     `json:"min_count"`
}

// decodeInto round-trips the generic document through JSON into a typed struct.
func (p ConditionParams) decodeInto(v interface{}) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// ErrorCount decodes ERROR_COUNT parameters, applying defaults.
func (p ConditionParams) ErrorCount() (ErrorCountParams, error) {
	out := ErrorCountParams{Threshold: 10, TimeWindowMinutes: 5}
	err := p.decodeInto(&out)
	return out, err
}

// ErrorRate decodes ERROR_RATE parameters, applying defaults.
func (p ConditionParams) ErrorRate() (ErrorRateParams, error) {
	out := ErrorRateParams{Threshold: 1, TimeWindowMinutes: 15}
	err := p.decodeInto(&out)
	return out, err
}

// ErrorSpike decodes ERROR_SPIKE parameters, applying defaults.
func (p ConditionParams) ErrorSpike() (ErrorSpikeParams, error) {
	out := ErrorSpikeParams{
		SpikeMultiplier:       3,
		TimeWindowMinutes:     10,
		BaselineWindowMinutes: 60,
		MinCount:              5,
	}
	err := p.decodeInto(&out)
	return out, err
}

// AlertRule is a user-defined trigger evaluated against the error stream
type AlertRule struct {
	ID                   string                                  `json:"id" db:"id"`
	Name                 string                                  `json:"name" db:"name"`
	Description          string                                  `json:"description,omitempty" db:"description"`
	Condition            AlertCondition                          `json:"condition" db:"condition"`
	ErrorType            *ErrorType                              `json:"error_type,omitempty" db:"error_type"`
	Severity             *Severity                               `json:"severity,omitempty" db:"severity"`
	Source               *string                                 `json:"source,omitempty" db:"source"`
	ConditionParams      ConditionParams                         `json:"condition_params,omitempty" db:"condition_params"`
	NotificationChannels []NotificationChannel                   `json:"notification_channels" db:"notification_channels"`
	NotificationConfig   map[NotificationChannel]ChannelConfig   `json:"notification_config,omitempty" db:"notification_config"`
	CooldownMinutes      int                                     `json:"cooldown_minutes" db:"cooldown_minutes"`
	IsActive             bool                                    `json:"is_active" db:"is_active"`
	LastTriggered        *time.Time                              `json:"last_triggered,omitempty" db:"last_triggered"`
	CreatedAt            time.Time                               `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time                               `json:"updated_at" db:"updated_at"`
}

// Cooldown returns the rule's cooldown as a duration.
func (r *AlertRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// Matches reports whether an event passes the rule's filters. An unset
// filter matches everything.
func (r *AlertRule) Matches(ev *ErrorEvent) bool {
	if r.ErrorType != nil && *r.ErrorType != ev.ErrorType {
		return false
	}
	if r.Severity != nil && *r.Severity != ev.Severity {
		return false
	}
	if r.Source != nil && *r.Source != ev.Source {
		return false
	}
	return true
}

// Validate checks a rule payload before persisting.
func (r *AlertRule) Validate() map[string]string {
	fields := make(map[string]string)
	if r.Name == "" {
		fields["name"] = "name is required"
	}
	if !r.Condition.IsValid() {
		fields["condition"] = "unknown condition"
	}
	if len(r.NotificationChannels) == 0 {
		fields["notification_channels"] = "at least one channel is required"
	}
	for _, ch := range r.NotificationChannels {
		if !ch.IsValid() {
			fields["notification_channels"] = "unknown channel: " + string(ch)
		}
	}
	if r.CooldownMinutes < 1 {
		fields["cooldown_minutes"] = "cooldown_minutes must be at least 1"
	}
	if r.ErrorType != nil && !r.ErrorType.IsValid() {
		fields["error_type"] = "unknown error type"
	}
	if r.Severity != nil && !r.Severity.IsValid() {
		fields["severity"] = "unknown severity"
	}
	if r.ConditionParams != nil {
		var err error
		switch r.Condition {
		case ConditionErrorCount:
			_, err = r.ConditionParams.ErrorCount()
		case ConditionErrorRate:
			_, err = r.ConditionParams.ErrorRate()
		case ConditionErrorSpike:
			_, err = r.ConditionParams.ErrorSpike()
		}
		if err != nil {
			fields["condition_params"] = "malformed parameters for " + string(r.Condition)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// AlertRuleUpdate carries the mutable fields of an alert rule
type AlertRuleUpdate struct {
	Name                 *string                                `json:"name,omitempty"`
	Description          *string                                `json:"description,omitempty"`
	Condition            *AlertCondition                        `json:"condition,omitempty"`
	ErrorType            *ErrorType                             `json:"error_type,omitempty"`
	Severity             *Severity                              `json:"severity,omitempty"`
	Source               *string                                `json:"source,omitempty"`
	ConditionParams      *ConditionParams                       `json:"condition_params,omitempty"`
	NotificationChannels *[]NotificationChannel                 `json:"notification_channels,omitempty"`
	NotificationConfig   *map[NotificationChannel]ChannelConfig `json:"notification_config,omitempty"`
	CooldownMinutes      *int                                   `json:"cooldown_minutes,omitempty"`
}

// Apply merges the update into the rule.
func (u *AlertRuleUpdate) Apply(r *AlertRule) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Condition != nil {
		r.Condition = *u.Condition
	}
	if u.ErrorType != nil {
		r.ErrorType = u.ErrorType
	}
	if u.Severity != nil {
		r.Severity = u.Severity
	}
	if u.Source != nil {
		r.Source = u.Source
	}
	if u.ConditionParams != nil {
		r.ConditionParams = *u.ConditionParams
	}
	if u.NotificationChannels != nil {
		r.NotificationChannels = *u.NotificationChannels
	}
	if u.NotificationConfig != nil {
		r.NotificationConfig = *u.NotificationConfig
	}
	if u.CooldownMinutes != nil {
		r.CooldownMinutes = *u.CooldownMinutes
	}
}
