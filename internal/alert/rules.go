// File: internal/alert/rules.go
package alert

import (
	"context"
	"time"

	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// Rule CRUD. All writes go through the engine so the in-memory cache,
// window series and cooldown state stay consistent with storage.

// CreateRule validates and persists a new alert rule
func (e *Engine) CreateRule(ctx context.Context, rule *models.AlertRule) (*models.AlertRule, error) {
	if fields := rule.Validate(); fields != nil {
		return nil, utils.NewValidationError("Invalid alert rule", fields)
	}

	now := time.Now().UTC()
	rule.ID = utils.GenerateID()
	rule.LastTriggered = nil
	rule.CreatedAt = now
	rule.UpdatedAt = now

	opCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()
	if err := e.storage.SaveRule(opCtx, rule); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.states[rule.ID] = &ruleState{}
	e.mu.Unlock()

	e.refreshRetention()
	e.updateRuleGauge()
	e.logger.WithFields(map[string]interface{}{
		"rule_id":   rule.ID,
		"rule_name": rule.Name,
		"condition": rule.Condition,
	}).Info("Created alert rule")
	return rule, nil
}

// GetRule retrieves one alert rule
func (e *Engine) GetRule(ctx context.Context, id string) (*models.AlertRule, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()
	return e.storage.GetRule(opCtx, id)
}

// GetRules retrieves all alert rules
func (e *Engine) GetRules(ctx context.Context) ([]*models.AlertRule, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()
	return e.storage.GetRules(opCtx, false)
}

// UpdateRule applies a partial update to an alert rule
func (e *Engine) UpdateRule(ctx context.Context, id string, update *models.AlertRuleUpdate) (*models.AlertRule, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rule, err := e.storage.GetRule(opCtx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(rule)
	if fields := rule.Validate(); fields != nil {
		return nil, utils.NewValidationError("Invalid alert rule", fields)
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := e.storage.UpdateRule(opCtx, rule); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.mu.Unlock()

	e.refreshRetention()
	e.updateRuleGauge()
	return rule, nil
}

// DeleteRule removes an alert rule and its in-memory state
func (e *Engine) DeleteRule(ctx context.Context, id string) error {
	opCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	if err := e.storage.DeleteRule(opCtx, id); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.rules, id)
	delete(e.states, id)
	e.mu.Unlock()

	e.windows.DropKey(id)
	e.updateRuleGauge()
	e.logger.WithField("rule_id", id).Info("Deleted alert rule")
	return nil
}

// ToggleRule flips a rule's active flag. Cooldown state is preserved:
// re-enabling a rule mid-cooldown does not let it fire early.
func (e *Engine) ToggleRule(ctx context.Context, id string) (*models.AlertRule, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rule, err := e.storage.GetRule(opCtx, id)
	if err != nil {
		return nil, err
	}

	rule.IsActive = !rule.IsActive
	rule.UpdatedAt = time.Now().UTC()
	if err := e.storage.UpdateRule(opCtx, rule); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.mu.Unlock()

	e.updateRuleGauge()
	e.logger.WithFields(map[string]interface{}{
		"rule_id":   rule.ID,
		"is_active": rule.IsActive,
	}).Info("Toggled alert rule")
	return rule, nil
}
