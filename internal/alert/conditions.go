// File: internal/alert/conditions.go
package alert

import (
	"fmt"
	"time"

	"github.com/smartdevs17/error-tracker/internal/models"
)

// evaluateWindowed checks a rule's windowed condition against the
// aggregator and returns the alert to fire, if any. Per-event conditions
// (CRITICAL_ERROR, NEW_ERROR_TYPE) are handled on the event path.
func (e *Engine) evaluateWindowed(rule *models.AlertRule, now time.Time) (*Alert, bool) {
	switch rule.Condition {
	case models.ConditionErrorCount:
		return e.evaluateErrorCount(rule, now)
	case models.ConditionErrorRate:
		return e.evaluateErrorRate(rule, now)
	case models.ConditionErrorSpike:
		return e.evaluateErrorSpike(rule, now)
	default:
		return nil, false
	}
}

func (e *Engine) evaluateErrorCount(rule *models.AlertRule, now time.Time) (*Alert, bool) {
	params, err := rule.ConditionParams.ErrorCount()
	if err != nil {
		e.logger.WithField("rule_id", rule.ID).Warn("Malformed ERROR_COUNT parameters, skipping rule")
		return nil, false
	}

	window := time.Duration(params.TimeWindowMinutes) * time.Minute
	count := e.windows.Count(rule.ID, window, now)
	if count < params.Threshold {
		return nil, false
	}

	return &Alert{
		Rule:      rule,
		Condition: rule.Condition,
		Summary: fmt.Sprintf("%d errors in the last %d minutes (threshold: %d)",
			count, params.TimeWindowMinutes, params.Threshold),
		Count:   count,
		FiredAt: now,
	}, true
}

func (e *Engine) evaluateErrorRate(rule *models.AlertRule, now time.Time) (*Alert, bool) {
	params, err := rule.ConditionParams.ErrorRate()
	if err != nil {
		e.logger.WithField("rule_id", rule.ID).Warn("Malformed ERROR_RATE parameters, skipping rule")
		return nil, false
	}

	window := time.Duration(params.TimeWindowMinutes) * time.Minute
	rate := e.windows.Rate(rule.ID, window, now)
	if rate < params.Threshold {
		return nil, false
	}

	return &Alert{
		Rule:      rule,
		Condition: rule.Condition,
		Summary: fmt.Sprintf("Error rate %.2f/min over the last %d minutes (threshold: %.2f/min)",
			rate, params.TimeWindowMinutes, params.Threshold),
		Count:   e.windows.Count(rule.ID, window, now),
		Rate:    rate,
		FiredAt: now,
	}, true
}

func (e *Engine) evaluateErrorSpike(rule *models.AlertRule, now time.Time) (*Alert, bool) {
	params, err := rule.ConditionParams.ErrorSpike()
	if err != nil {
		e.logger.WithField("rule_id", rule.ID).Warn("Malformed ERROR_SPIKE parameters, skipping rule")
		return nil, false
	}

	window := time.Duration(params.TimeWindowMinutes) * time.Minute
	baseline := time.Duration(params.BaselineWindowMinutes) * time.Minute

	current := e.windows.Count(rule.ID, window, now)
	if current < params.MinCount {
		return nil, false
	}

	// Baseline period trails the current window and is normalized to
	// the current window's length before comparing.
	baselineCount := e.windows.CountBetween(rule.ID, now.Add(-(baseline + window)), now.Add(-window))
	expected := float64(baselineCount) * window.Minutes() / baseline.Minutes()

	// An empty baseline means any burst of MinCount or more is a spike.
	if expected > 0 && float64(current) < expected*params.SpikeMultiplier {
		return nil, false
	}

	return &Alert{
		Rule:      rule,
		Condition: rule.Condition,
		Summary: fmt.Sprintf("Error spike: %d errors in %d minutes vs baseline of %.1f (multiplier: %.1fx)",
			current, params.TimeWindowMinutes, expected, params.SpikeMultiplier),
		Count:   current,
		FiredAt: now,
	}, true
}
