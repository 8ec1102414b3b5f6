// File: internal/alert/engine.go
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/error-tracker/internal/aggregate"
	"github.com/smartdevs17/error-tracker/internal/metrics"
	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/internal/storage"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// EngineStats tracks alert engine statistics
type EngineStats struct {
	Running          bool       `json:"running"`
	TotalRules       int        `json:"total_rules"`
	ActiveRules      int        `json:"active_rules"`
	AlertsFired      int64      `json:"alerts_fired"`
	AlertsSuppressed int64      `json:"alerts_suppressed"`
	LastTickAt       *time.Time `json:"last_tick_at,omitempty"`
}

// ruleState serializes firing decisions for one rule. The per-rule lock
// keeps the check-cooldown / persist / dispatch sequence atomic so a
// burst of matching events fires at most once per cooldown.
type ruleState struct {
	mu sync.Mutex
}

// Engine evaluates alert rules against the live error stream. Per-event
// conditions are checked as events arrive; windowed conditions are also
// re-checked on a periodic tick so they fire even when the stream goes
// quiet after crossing a threshold.
type Engine struct {
	storage      storage.Storage
	windows      *aggregate.Windows
	metrics      *metrics.Manager
	dispatcher   Dispatcher
	logger       *logrus.Logger
	queryTimeout time.Duration
	tickInterval time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	running  bool
	rules    map[string]*models.AlertRule
	states   map[string]*ruleState
	stats    EngineStats
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewEngine creates a new alert rule engine
func NewEngine(store storage.Storage, windows *aggregate.Windows, metricsManager *metrics.Manager, queryTimeout, tickInterval time.Duration) *Engine {
	return &Engine{
		storage:      store,
		windows:      windows,
		metrics:      metricsManager,
		logger:       utils.GetLogger(),
		queryTimeout: queryTimeout,
		tickInterval: tickInterval,
		now:          func() time.Time { return time.Now().UTC() },
		rules:        make(map[string]*models.AlertRule),
		states:       make(map[string]*ruleState),
	}
}

// SetDispatcher registers the outbound alert dispatcher
func (e *Engine) SetDispatcher(d Dispatcher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatcher = d
}

// Start loads rules from storage and begins the evaluation tick
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("alert engine is already running")
	}
	e.running = true
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	if err := e.loadRules(ctx); err != nil {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		cancel()
		return err
	}

	e.wg.Add(1)
	go e.tickLoop(runCtx)

	e.logger.WithField("tick_interval", e.tickInterval).Info("Alert engine started")
	return nil
}

// Stop halts the evaluation tick
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	e.logger.Info("Alert engine stopped")
	return nil
}

// IsRunning reports whether the engine is started
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// GetStats returns a snapshot of engine statistics
func (e *Engine) GetStats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := e.stats
	stats.Running = e.running
	stats.TotalRules = len(e.rules)
	stats.ActiveRules = 0
	for _, rule := range e.rules {
		if rule.IsActive {
			stats.ActiveRules++
		}
	}
	return stats
}

// loadRules hydrates the rule cache from storage
func (e *Engine) loadRules(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rules, err := e.storage.GetRules(opCtx, false)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.rules = make(map[string]*models.AlertRule, len(rules))
	for _, rule := range rules {
		e.rules[rule.ID] = rule
		if _, ok := e.states[rule.ID]; !ok {
			e.states[rule.ID] = &ruleState{}
		}
	}
	e.mu.Unlock()

	e.refreshRetention()
	e.updateRuleGauge()
	e.logger.WithField("rules", len(rules)).Info("Loaded alert rules")
	return nil
}

// refreshRetention sizes the aggregator horizon to the widest window any
// cached rule queries.
func (e *Engine) refreshRetention() {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var widest time.Duration
	for _, rule := range e.rules {
		var needed time.Duration
		switch rule.Condition {
		case models.ConditionErrorCount:
			if params, err := rule.ConditionParams.ErrorCount(); err == nil {
				needed = time.Duration(params.TimeWindowMinutes) * time.Minute
			}
		case models.ConditionErrorRate:
			if params, err := rule.ConditionParams.ErrorRate(); err == nil {
				needed = time.Duration(params.TimeWindowMinutes) * time.Minute
			}
		case models.ConditionErrorSpike:
			if params, err := rule.ConditionParams.ErrorSpike(); err == nil {
				needed = time.Duration(params.TimeWindowMinutes+params.BaselineWindowMinutes) * time.Minute
			}
		}
		if needed > widest {
			widest = needed
		}
	}
	if widest > 0 {
		e.windows.SetMaxAge(widest * 2)
	}
}

func (e *Engine) updateRuleGauge() {
	if e.metrics == nil {
		return
	}
	e.mu.RLock()
	active := 0
	for _, rule := range e.rules {
		if rule.IsActive {
			active++
		}
	}
	e.mu.RUnlock()
	e.metrics.GetPrometheusMetrics().UpdateActiveAlertRules(active)
}

// activeRules snapshots the active rules for lock-free iteration
func (e *Engine) activeRules() []*models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*models.AlertRule, 0, len(e.rules))
	for _, rule := range e.rules {
		if rule.IsActive {
			rules = append(rules, rule)
		}
	}
	return rules
}

func (e *Engine) stateFor(ruleID string) *ruleState {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[ruleID]
	if !ok {
		st = &ruleState{}
		e.states[ruleID] = st
	}
	return st
}

// HandleEvent observes one ingested event. Implements ingest.EventSink.
func (e *Engine) HandleEvent(event *models.ErrorEvent, group *models.ErrorGroup, isNewGroup bool) {
	if !e.IsRunning() {
		return
	}

	for _, rule := range e.activeRules() {
		if !rule.Matches(event) {
			continue
		}

		switch rule.Condition {
		case models.ConditionErrorCount, models.ConditionErrorRate, models.ConditionErrorSpike:
			e.windows.Record(rule.ID, event.Timestamp)
			if alert, fire := e.evaluateWindowed(rule, e.now()); fire {
				alert.Event = event
				alert.Group = group
				e.tryFire(rule, alert)
			}

		case models.ConditionCriticalError:
			if event.Severity != models.SeverityCritical {
				continue
			}
			e.tryFire(rule, &Alert{
				Rule:      rule,
				Condition: rule.Condition,
				Summary:   fmt.Sprintf("Critical error in %s: %s", event.Source, event.Message),
				Event:     event,
				Group:     group,
				Count:     1,
				FiredAt:   e.now(),
			})

		case models.ConditionNewErrorType:
			if !isNewGroup {
				continue
			}
			e.tryFire(rule, &Alert{
				Rule:      rule,
				Condition: rule.Condition,
				Summary:   fmt.Sprintf("New error type in %s: %s", event.Source, group.MessagePattern),
				Event:     event,
				Group:     group,
				Count:     1,
				FiredAt:   e.now(),
			})
		}
	}
}

// tickLoop periodically re-evaluates windowed rules
func (e *Engine) tickLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick runs one evaluation pass over all active windowed rules
func (e *Engine) Tick() {
	now := e.now()
	for _, rule := range e.activeRules() {
		switch rule.Condition {
		case models.ConditionErrorCount, models.ConditionErrorRate, models.ConditionErrorSpike:
			if alert, fire := e.evaluateWindowed(rule, now); fire {
				e.tryFire(rule, alert)
			}
		}
	}

	e.mu.Lock()
	e.stats.LastTickAt = &now
	e.mu.Unlock()
}

// tryFire applies the cooldown debounce and dispatches the alert. The
// cooldown timestamp is persisted before dispatch, so delivery failures
// never re-open the cooldown window.
func (e *Engine) tryFire(rule *models.AlertRule, alert *Alert) {
	st := e.stateFor(rule.ID)
	st.mu.Lock()
	defer st.mu.Unlock()

	e.mu.RLock()
	cached, ok := e.rules[rule.ID]
	dispatcher := e.dispatcher
	e.mu.RUnlock()
	if !ok || !cached.IsActive {
		return
	}

	now := alert.FiredAt
	if cached.LastTriggered != nil && now.Sub(*cached.LastTriggered) < cached.Cooldown() {
		e.mu.Lock()
		e.stats.AlertsSuppressed++
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.GetPrometheusMetrics().RecordAlertSuppressed(cached.Name, string(cached.Condition))
		}
		return
	}

	opCtx, cancel := context.WithTimeout(context.Background(), e.queryTimeout)
	defer cancel()
	if err := e.storage.SetRuleLastTriggered(opCtx, rule.ID, now); err != nil {
		e.logger.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"error":   err.Error(),
		}).Error("Failed to persist alert firing, skipping dispatch")
		return
	}

	triggered := now
	e.mu.Lock()
	cached.LastTriggered = &triggered
	e.stats.AlertsFired++
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.GetPrometheusMetrics().RecordAlertTriggered(cached.Name, string(cached.Condition))
	}

	e.logger.WithFields(logrus.Fields{
		"rule_id":   rule.ID,
		"rule_name": cached.Name,
		"condition": cached.Condition,
		"summary":   alert.Summary,
	}).Info("Alert triggered")

	if dispatcher != nil {
		dispatcher.Dispatch(alert)
	}
}
