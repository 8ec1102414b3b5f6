// File: internal/models/alert_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() *AlertRule {
	return &AlertRule{
		Name:                 "error burst",
		Condition:            ConditionErrorCount,
		NotificationChannels: []NotificationChannel{ChannelSlack},
		CooldownMinutes:      15,
	}
}

func TestAlertRuleValidate(t *testing.T) {
	assert.Nil(t, validRule().Validate())

	rule := validRule()
	rule.Name = ""
	fields := rule.Validate()
	require.NotNil(t, fields)
	assert.Contains(t, fields, "name")

	rule = validRule()
	rule.Condition = "BOGUS"
	fields = rule.Validate()
	require.NotNil(t, fields)
	assert.Contains(t, fields, "condition")

	rule = validRule()
	rule.NotificationChannels = nil
	fields = rule.Validate()
	require.NotNil(t, fields)
	assert.Contains(t, fields, "notification_channels")

	rule = validRule()
	rule.CooldownMinutes = 0
	fields = rule.Validate()
	require.NotNil(t, fields)
	assert.Contains(t, fields, "cooldown_minutes")

	rule = validRule()
	rule.ConditionParams = ConditionParams{"threshold": "lots"}
	fields = rule.Validate()
	require.NotNil(t, fields)
	assert.Contains(t, fields, "condition_params")
}

func TestConditionParamsDefaults(t *testing.T) {
	count, err := ConditionParams{}.ErrorCount()
	require.NoError(t, err)
	assert.Equal(t, 10, count.Threshold)
	assert.Equal(t, 5, count.TimeWindowMinutes)

	rate, err := ConditionParams{}.ErrorRate()
	require.NoError(t, err)
	assert.Equal(t, float64(1), rate.Threshold)
	assert.Equal(t, 15, rate.TimeWindowMinutes)

	spike, err := ConditionParams{}.ErrorSpike()
	require.NoError(t, err)
	assert.Equal(t, float64(3), spike.SpikeMultiplier)
	assert.Equal(t, 10, spike.TimeWindowMinutes)
	assert.Equal(t, 60, spike.BaselineWindowMinutes)
	assert.Equal(t, 5, spike.MinCount)
}

func TestConditionParamsOverrides(t *testing.T) {
	count, err := ConditionParams{"threshold": 50, "time_window_minutes": 30}.ErrorCount()
	require.NoError(t, err)
	assert.Equal(t, 50, count.Threshold)
	assert.Equal(t, 30, count.TimeWindowMinutes)

	// Partial overrides keep the remaining defaults
	count, err = ConditionParams{"threshold": 3}.ErrorCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count.Threshold)
	assert.Equal(t, 5, count.TimeWindowMinutes)

	_, err = ConditionParams{"threshold": "lots"}.ErrorCount()
	assert.Error(t, err)
}

func TestAlertRuleMatches(t *testing.T) {
	event := &ErrorEvent{
		ErrorType: ErrorTypeDatabase,
		Severity:  SeverityHigh,
		Source:    "backend",
	}

	// No filters match everything
	assert.True(t, validRule().Matches(event))

	errorType := ErrorTypeDatabase
	severity := SeverityHigh
	source := "backend"
	rule := validRule()
	rule.ErrorType = &errorType
	rule.Severity = &severity
	rule.Source = &source
	assert.True(t, rule.Matches(event))

	otherType := ErrorTypeAuth
	rule = validRule()
	rule.ErrorType = &otherType
	assert.False(t, rule.Matches(event))

	otherSeverity := SeverityLow
	rule = validRule()
	rule.Severity = &otherSeverity
	assert.False(t, rule.Matches(event))

	otherSource := "frontend"
	rule = validRule()
	rule.Source = &otherSource
	assert.False(t, rule.Matches(event))
}

func TestSeverityRank(t *testing.T) {
	assert.Equal(t, 0, SeverityLow.Rank())
	assert.Equal(t, 1, SeverityMedium.Rank())
	assert.Equal(t, 2, SeverityHigh.Rank())
	assert.Equal(t, 3, SeverityCritical.Rank())
	assert.Equal(t, -1, Severity("BOGUS").Rank())
}

func TestErrorEventValidate(t *testing.T) {
	event := &ErrorEvent{
		Message:   "connection refused",
		ErrorType: ErrorTypeDatabase,
		Severity:  SeverityHigh,
		Source:    "backend",
	}
	assert.Nil(t, event.Validate())

	event.Message = ""
	event.ErrorType = "BOGUS"
	fields := event.Validate()
	require.NotNil(t, fields)
	assert.Contains(t, fields, "message")
	assert.Contains(t, fields, "error_type")
}

func TestAlertRuleUpdateApply(t *testing.T) {
	rule := validRule()

	name := "renamed"
	cooldown := 30
	params := ConditionParams{"threshold": 3}
	update := AlertRuleUpdate{
		Name:            &name,
		CooldownMinutes: &cooldown,
		ConditionParams: &params,
	}
	update.Apply(rule)

	assert.Equal(t, "renamed", rule.Name)
	assert.Equal(t, 30, rule.CooldownMinutes)
	assert.Equal(t, params, rule.ConditionParams)
	// Untouched fields survive
	assert.Equal(t, ConditionErrorCount, rule.Condition)
	assert.Equal(t, []NotificationChannel{ChannelSlack}, rule.NotificationChannels)
}
