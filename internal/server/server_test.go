// File: internal/server/server_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/error-tracker/internal/aggregate"
	"github.com/smartdevs17/error-tracker/internal/alert"
	"github.com/smartdevs17/error-tracker/internal/ingest"
	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/internal/storage"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// memStore is an in-memory Storage backing the handler tests
type memStore struct {
	storage.Storage

	mu     sync.Mutex
	events map[string]*models.ErrorEvent
	groups map[string]*models.ErrorGroup
	rules  map[string]*models.AlertRule
	logs   []*models.NotificationLog
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[string]*models.ErrorEvent),
		groups: make(map[string]*models.ErrorGroup),
		rules:  make(map[string]*models.AlertRule),
	}
}

func (m *memStore) Ping() error { return nil }

func (m *memStore) SaveError(ctx context.Context, event *models.ErrorEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *event
	m.events[event.ID] = &copied
	return nil
}

func (m *memStore) GetError(ctx context.Context, id string) (*models.ErrorEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Error event not found", id)
	}
	copied := *event
	return &copied, nil
}

func (m *memStore) matchEvent(event *models.ErrorEvent, filter models.ErrorFilter) bool {
	if filter.ErrorType != nil && event.ErrorType != *filter.ErrorType {
		return false
	}
	if filter.Severity != nil && event.Severity != *filter.Severity {
		return false
	}
	if filter.Source != nil && event.Source != *filter.Source {
		return false
	}
	if filter.Status != nil && event.Status != *filter.Status {
		return false
	}
	if filter.GroupID != nil && event.GroupID != *filter.GroupID {
		return false
	}
	return true
}

func (m *memStore) GetErrors(ctx context.Context, filter models.ErrorFilter) ([]*models.ErrorEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.ErrorEvent, 0)
	for _, event := range m.events {
		if m.matchEvent(event, filter) {
			copied := *event
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Skip > 0 && filter.Skip < len(out) {
		out = out[filter.Skip:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) CountErrors(ctx context.Context, filter models.ErrorFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, event := range m.events {
		if m.matchEvent(event, filter) {
			total++
		}
	}
	return total, nil
}

func (m *memStore) UpdateError(ctx context.Context, event *models.ErrorEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error event not found", event.ID)
	}
	copied := *event
	m.events[event.ID] = &copied
	return nil
}

func (m *memStore) DeleteError(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error event not found", id)
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) GetGroup(ctx context.Context, id string) (*models.ErrorGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.groups[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", id)
	}
	copied := *group
	return &copied, nil
}

func (m *memStore) GetGroupByFingerprint(ctx context.Context, fingerprint string) (*models.ErrorGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, group := range m.groups {
		if group.Fingerprint == fingerprint {
			copied := *group
			return &copied, nil
		}
	}
	return nil, utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", fingerprint)
}

func (m *memStore) InsertGroup(ctx context.Context, group *models.ErrorGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.groups {
		if existing.Fingerprint == group.Fingerprint {
			return utils.NewAppError(utils.ErrCodeConflict, "Fingerprint already owned by another group", group.Fingerprint)
		}
	}
	copied := *group
	m.groups[group.ID] = &copied
	return nil
}

func (m *memStore) GetGroups(ctx context.Context, filter models.GroupFilter) ([]*models.ErrorGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.ErrorGroup, 0)
	for _, group := range m.groups {
		if filter.ErrorType != nil && group.ErrorType != *filter.ErrorType {
			continue
		}
		if filter.Severity != nil && group.Severity != *filter.Severity {
			continue
		}
		if filter.Source != nil && group.Source != *filter.Source {
			continue
		}
		if filter.Status != nil && group.Status != *filter.Status {
			continue
		}
		copied := *group
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}

func (m *memStore) UpdateGroup(ctx context.Context, group *models.ErrorGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[group.ID]; !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", group.ID)
	}
	copied := *group
	m.groups[group.ID] = &copied
	return nil
}

func (m *memStore) DeleteGroup(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", id)
	}
	delete(m.groups, id)
	for eventID, event := range m.events {
		if event.GroupID == id {
			delete(m.events, eventID)
		}
	}
	return nil
}

func (m *memStore) ApplyGroupOccurrence(ctx context.Context, groupID string, occurredAt time.Time, severity models.Severity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.groups[groupID]
	if !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", groupID)
	}
	group.TotalOccurrences++
	if occurredAt.Before(group.FirstSeen) {
		group.FirstSeen = occurredAt
	}
	if occurredAt.After(group.LastSeen) {
		group.LastSeen = occurredAt
	}
	if severity.Rank() > group.Severity.Rank() {
		group.Severity = severity
	}
	return nil
}

func (m *memStore) GetRecentGroupErrors(ctx context.Context, groupID string, limit int) ([]*models.ErrorEvent, error) {
	events, err := m.GetErrors(ctx, models.ErrorFilter{GroupID: &groupID, Limit: limit})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (m *memStore) SaveRule(ctx context.Context, rule *models.AlertRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *rule
	m.rules[rule.ID] = &copied
	return nil
}

func (m *memStore) GetRule(ctx context.Context, id string) (*models.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Alert rule not found", id)
	}
	copied := *rule
	return &copied, nil
}

func (m *memStore) GetRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AlertRule, 0, len(m.rules))
	for _, rule := range m.rules {
		if activeOnly && !rule.IsActive {
			continue
		}
		copied := *rule
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memStore) UpdateRule(ctx context.Context, rule *models.AlertRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Alert rule not found", rule.ID)
	}
	copied := *rule
	m.rules[rule.ID] = &copied
	return nil
}

func (m *memStore) DeleteRule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Alert rule not found", id)
	}
	delete(m.rules, id)
	return nil
}

func (m *memStore) SetRuleLastTriggered(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return utils.NewAppError(utils.ErrCodeNotFound, "Alert rule not found", id)
	}
	triggered := at
	rule.LastTriggered = &triggered
	return nil
}

func (m *memStore) SaveNotificationLog(ctx context.Context, log *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *log
	m.logs = append(m.logs, &copied)
	return nil
}

func (m *memStore) GetNotificationLogs(ctx context.Context, ruleID string, limit int) ([]*models.NotificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.NotificationLog, 0)
	for _, log := range m.logs {
		if log.AlertRuleID == ruleID {
			copied := *log
			out = append(out, &copied)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetStatsSummary(ctx context.Context, days int) (*models.StatsSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &models.StatsSummary{
		BySeverity: make(map[models.Severity]int64),
		ByStatus:   make(map[models.ErrorStatus]int64),
		ByType:     make(map[models.ErrorType]int64),
		BySource:   make(map[string]int64),
		PeriodDays: days,
	}
	for _, event := range m.events {
		summary.TotalErrors++
		summary.BySeverity[event.Severity]++
		summary.ByStatus[event.Status]++
		summary.ByType[event.ErrorType]++
		summary.BySource[event.Source]++
	}
	summary.ErrorRate = float64(summary.TotalErrors) / float64(days)
	return summary, nil
}

func (m *memStore) GetTimeline(ctx context.Context, days int) ([]models.TimelinePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int64)
	for _, event := range m.events {
		counts[event.Timestamp.Format("2006-01-02")]++
	}
	out := make([]models.TimelinePoint, 0, len(counts))
	for date, count := range counts {
		out = append(out, models.TimelinePoint{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memStore) GetTopErrors(ctx context.Context, limit, days int) ([]models.TopError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct {
		message   string
		errorType models.ErrorType
	}
	counts := make(map[key]int64)
	for _, event := range m.events {
		counts[key{event.Message, event.ErrorType}]++
	}
	out := make([]models.TopError, 0, len(counts))
	for k, count := range counts {
		out = append(out, models.TopError{Message: k.message, ErrorType: k.errorType, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// newTestServer wires a full handler stack over the in-memory store
func newTestServer(t *testing.T) (http.Handler, *memStore) {
	t.Helper()

	store := newMemStore()
	resolver := ingest.NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)
	ingestService := ingest.NewService(store, resolver, nil, time.Second)
	engine := alert.NewEngine(store, aggregate.NewWindows(), nil, time.Second, time.Minute)

	server, err := NewHTTPServer(&ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		EnableHealth: true,
	}, store, ingestService, engine, nil, nil)
	require.NoError(t, err)

	return server.Handler(), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
}

func eventPayload(message string) map[string]interface{} {
	return map[string]interface{}{
		"message":    message,
		"error_type": "DATABASE",
		"severity":   "HIGH",
		"source":     "backend",
	}
}

func TestHealthEndpoints(t *testing.T) {
	handler, _ := newTestServer(t)

	recorder := doJSON(t, handler, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var health map[string]interface{}
	decodeBody(t, recorder, &health)
	assert.Equal(t, "healthy", health["status"])

	recorder = doJSON(t, handler, "GET", "/health/detailed", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCreateAndFetchError(t *testing.T) {
	handler, _ := newTestServer(t)

	recorder := doJSON(t, handler, "POST", "/api/errors", eventPayload("connection refused"))
	require.Equal(t, http.StatusCreated, recorder.Code)

	var created models.ErrorEvent
	decodeBody(t, recorder, &created)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.GroupID)
	assert.Equal(t, models.StatusOpen, created.Status)

	recorder = doJSON(t, handler, "GET", "/api/errors/"+created.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var fetched models.ErrorEvent
	decodeBody(t, recorder, &fetched)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "connection refused", fetched.Message)
}

func TestCreateErrorValidation(t *testing.T) {
	handler, store := newTestServer(t)

	payload := eventPayload("")
	payload["severity"] = "BOGUS"

	recorder := doJSON(t, handler, "POST", "/api/errors", payload)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.events)
}

func TestListErrorsWithFilter(t *testing.T) {
	handler, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		recorder := doJSON(t, handler, "POST", "/api/errors", eventPayload(fmt.Sprintf("db error %d", i)))
		require.Equal(t, http.StatusCreated, recorder.Code)
	}
	low := eventPayload("slow request")
	low["severity"] = "LOW"
	low["error_type"] = "PERFORMANCE"
	recorder := doJSON(t, handler, "POST", "/api/errors", low)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doJSON(t, handler, "GET", "/api/errors", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var listing struct {
		Errors []*models.ErrorEvent `json:"errors"`
		Total  int64                `json:"total"`
	}
	decodeBody(t, recorder, &listing)
	assert.Equal(t, int64(4), listing.Total)
	assert.Len(t, listing.Errors, 4)

	recorder = doJSON(t, handler, "GET", "/api/errors?severity=LOW", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	decodeBody(t, recorder, &listing)
	assert.Equal(t, int64(1), listing.Total)
	require.Len(t, listing.Errors, 1)
	assert.Equal(t, "slow request", listing.Errors[0].Message)
}

func TestErrorNotFound(t *testing.T) {
	handler, _ := newTestServer(t)

	recorder := doJSON(t, handler, "GET", "/api/errors/missing", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = doJSON(t, handler, "DELETE", "/api/errors/missing", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUpdateErrorStampsResolvedAt(t *testing.T) {
	handler, _ := newTestServer(t)

	recorder := doJSON(t, handler, "POST", "/api/errors", eventPayload("connection refused"))
	require.Equal(t, http.StatusCreated, recorder.Code)
	var created models.ErrorEvent
	decodeBody(t, recorder, &created)

	recorder = doJSON(t, handler, "PATCH", "/api/errors/"+created.ID, map[string]interface{}{
		"status": "RESOLVED",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var updated models.ErrorEvent
	decodeBody(t, recorder, &updated)
	assert.Equal(t, models.StatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)

	// Reopening clears the resolution timestamp
	recorder = doJSON(t, handler, "PATCH", "/api/errors/"+created.ID, map[string]interface{}{
		"status": "OPEN",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	updated = models.ErrorEvent{}
	decodeBody(t, recorder, &updated)
	assert.Equal(t, models.StatusOpen, updated.Status)
	assert.Nil(t, updated.ResolvedAt)
}

func TestUpdateErrorRejectsUnknownStatus(t *testing.T) {
	handler, _ := newTestServer(t)

	recorder := doJSON(t, handler, "POST", "/api/errors", eventPayload("connection refused"))
	require.Equal(t, http.StatusCreated, recorder.Code)
	var created models.ErrorEvent
	decodeBody(t, recorder, &created)

	recorder = doJSON(t, handler, "PATCH", "/api/errors/"+created.ID, map[string]interface{}{
		"status": "BOGUS",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGroupDetailIncludesRecentErrors(t *testing.T) {
	handler, _ := newTestServer(t)

	// 12 occurrences of the same error collapse into one group
	for i := 0; i < 12; i++ {
		recorder := doJSON(t, handler, "POST", "/api/errors", eventPayload("connection refused"))
		require.Equal(t, http.StatusCreated, recorder.Code)
	}

	recorder := doJSON(t, handler, "GET", "/groups", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var listing struct {
		Groups []*models.ErrorGroup `json:"groups"`
	}
	decodeBody(t, recorder, &listing)
	require.Len(t, listing.Groups, 1)
	assert.Equal(t, int64(12), listing.Groups[0].TotalOccurrences)

	recorder = doJSON(t, handler, "GET", "/groups/"+listing.Groups[0].ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var detail struct {
		models.ErrorGroup
		RecentErrors []*models.ErrorEvent `json:"recent_errors"`
	}
	decodeBody(t, recorder, &detail)
	assert.Len(t, detail.RecentErrors, 10)
}

func TestGroupLifecycle(t *testing.T) {
	handler, _ := newTestServer(t)

	recorder := doJSON(t, handler, "POST", "/api/errors", eventPayload("connection refused"))
	require.Equal(t, http.StatusCreated, recorder.Code)
	var created models.ErrorEvent
	decodeBody(t, recorder, &created)

	recorder = doJSON(t, handler, "PATCH", "/groups/"+created.GroupID, map[string]interface{}{
		"status":      "IN_PROGRESS",
		"assigned_to": "alice",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var group models.ErrorGroup
	decodeBody(t, recorder, &group)
	assert.Equal(t, models.StatusInProgress, group.Status)
	assert.Equal(t, "alice", group.AssignedTo)

	recorder = doJSON(t, handler, "DELETE", "/groups/"+created.GroupID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, "GET", "/groups/"+created.GroupID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	// Member events went with the group
	recorder = doJSON(t, handler, "GET", "/api/errors/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestAlertRuleLifecycle(t *testing.T) {
	handler, _ := newTestServer(t)

	// Omitted cooldown and active flag take their defaults
	recorder := doJSON(t, handler, "POST", "/alerts", map[string]interface{}{
		"name":                  "error burst",
		"condition":             "ERROR_COUNT",
		"condition_params":      map[string]interface{}{"threshold": 5, "time_window_minutes": 10},
		"notification_channels": []string{"SLACK"},
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var rule models.AlertRule
	decodeBody(t, recorder, &rule)
	assert.NotEmpty(t, rule.ID)
	assert.True(t, rule.IsActive)
	assert.Equal(t, 15, rule.CooldownMinutes)
	assert.Nil(t, rule.LastTriggered)

	recorder = doJSON(t, handler, "GET", "/alerts", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listing struct {
		Rules []*models.AlertRule `json:"rules"`
	}
	decodeBody(t, recorder, &listing)
	assert.Len(t, listing.Rules, 1)

	recorder = doJSON(t, handler, "PATCH", "/alerts/"+rule.ID, map[string]interface{}{
		"cooldown_minutes": 30,
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	decodeBody(t, recorder, &rule)
	assert.Equal(t, 30, rule.CooldownMinutes)

	recorder = doJSON(t, handler, "POST", "/alerts/"+rule.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	decodeBody(t, recorder, &rule)
	assert.False(t, rule.IsActive)

	recorder = doJSON(t, handler, "GET", "/alerts/"+rule.ID+"/notifications", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var logs struct {
		Notifications []*models.NotificationLog `json:"notifications"`
	}
	decodeBody(t, recorder, &logs)
	assert.Empty(t, logs.Notifications)

	recorder = doJSON(t, handler, "DELETE", "/alerts/"+rule.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, "GET", "/alerts/"+rule.ID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateAlertValidation(t *testing.T) {
	handler, _ := newTestServer(t)

	recorder := doJSON(t, handler, "POST", "/alerts", map[string]interface{}{
		"condition": "ERROR_COUNT",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAlertNotificationsUnknownRule(t *testing.T) {
	handler, _ := newTestServer(t)

	recorder := doJSON(t, handler, "GET", "/alerts/missing/notifications", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestStatsEndpoints(t *testing.T) {
	handler, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		recorder := doJSON(t, handler, "POST", "/api/errors", eventPayload("connection refused"))
		require.Equal(t, http.StatusCreated, recorder.Code)
	}
	recorder := doJSON(t, handler, "POST", "/api/errors", eventPayload("index out of range"))
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doJSON(t, handler, "GET", "/api/stats/summary?days=7", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var summary models.StatsSummary
	decodeBody(t, recorder, &summary)
	assert.Equal(t, int64(4), summary.TotalErrors)
	assert.Equal(t, int64(4), summary.BySeverity[models.SeverityHigh])
	assert.Equal(t, 7, summary.PeriodDays)

	recorder = doJSON(t, handler, "GET", "/api/stats/timeline", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var timeline struct {
		Timeline []models.TimelinePoint `json:"timeline"`
	}
	decodeBody(t, recorder, &timeline)
	require.Len(t, timeline.Timeline, 1)
	assert.Equal(t, int64(4), timeline.Timeline[0].Count)

	recorder = doJSON(t, handler, "GET", "/api/stats/top-errors?limit=1", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var top struct {
		TopErrors []models.TopError `json:"top_errors"`
	}
	decodeBody(t, recorder, &top)
	require.Len(t, top.TopErrors, 1)
	assert.Equal(t, "connection refused", top.TopErrors[0].Message)
	assert.Equal(t, int64(3), top.TopErrors[0].Count)
}
