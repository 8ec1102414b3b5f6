// File: internal/notification/dispatcher_test.go
package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/error-tracker/internal/alert"
	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/internal/storage"
)

// logStore is an in-memory Storage capturing notification log rows
type logStore struct {
	storage.Storage

	mu   sync.Mutex
	logs []*models.NotificationLog
}

func (s *logStore) SaveNotificationLog(ctx context.Context, log *models.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *log
	s.logs = append(s.logs, &copied)
	return nil
}

func (s *logStore) snapshot() []*models.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.NotificationLog, len(s.logs))
	copy(out, s.logs)
	return out
}

func testAlert(rule *models.AlertRule) *alert.Alert {
	return &alert.Alert{
		Rule:      rule,
		Condition: rule.Condition,
		Summary:   "12 errors in the last 5 minutes (threshold: 10)",
		Event: &models.ErrorEvent{
			ID:        "evt-1",
			Message:   "connection refused",
			ErrorType: models.ErrorTypeDatabase,
			Severity:  models.SeverityCritical,
			Source:    "backend",
		},
		Group: &models.ErrorGroup{
			ID:               "grp-1",
			TotalOccurrences: 12,
		},
		Count:   12,
		FiredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func dispatcherConfig() Config {
	return Config{
		Enabled:       true,
		Timeout:       5 * time.Second,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}
}

func TestDispatchFansOutPerChannel(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = make(map[string]string)
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies[r.URL.Path] = string(raw)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &logStore{}
	dispatcher := NewDispatcher(store, nil, dispatcherConfig())

	rule := &models.AlertRule{
		ID:        "rule-1",
		Name:      "error burst",
		Condition: models.ConditionErrorCount,
		NotificationChannels: []models.NotificationChannel{
			models.ChannelSlack, models.ChannelDiscord, models.ChannelWebhook,
		},
		NotificationConfig: map[models.NotificationChannel]models.ChannelConfig{
			models.ChannelSlack:   {Recipient: server.URL + "/slack"},
			models.ChannelDiscord: {Recipient: server.URL + "/discord"},
			models.ChannelWebhook: {Recipient: server.URL + "/webhook"},
		},
	}

	dispatcher.Dispatch(testAlert(rule))
	require.NoError(t, dispatcher.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 3)

	var slack slackPayload
	require.NoError(t, json.Unmarshal([]byte(bodies["/slack"]), &slack))
	assert.Contains(t, slack.Text, "error burst")
	assert.Contains(t, slack.Text, "12 errors in the last 5 minutes")

	var discord discordPayload
	require.NoError(t, json.Unmarshal([]byte(bodies["/discord"]), &discord))
	require.Len(t, discord.Embeds, 1)
	assert.Equal(t, 0xE74C3C, discord.Embeds[0].Color)

	var webhook webhookPayload
	require.NoError(t, json.Unmarshal([]byte(bodies["/webhook"]), &webhook))
	assert.Equal(t, "rule-1", webhook.AlertRuleID)
	assert.Equal(t, "ERROR_COUNT", webhook.Condition)
	assert.Equal(t, "error-tracker", webhook.Source)
	require.NotNil(t, webhook.Group)
	assert.Equal(t, int64(12), webhook.Group.TotalOccurrences)

	logs := store.snapshot()
	require.Len(t, logs, 3)
	for _, log := range logs {
		assert.True(t, log.Sent)
		assert.Equal(t, "rule-1", log.AlertRuleID)
	}

	stats := dispatcher.GetStats()
	assert.Equal(t, int64(3), stats.TotalSent)
	assert.Equal(t, int64(0), stats.TotalFailed)
}

func TestDispatchChannelFailuresAreIndependent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &logStore{}
	dispatcher := NewDispatcher(store, nil, dispatcherConfig())

	rule := &models.AlertRule{
		ID:        "rule-1",
		Name:      "error burst",
		Condition: models.ConditionErrorCount,
		NotificationChannels: []models.NotificationChannel{
			models.ChannelSlack, models.ChannelWebhook,
		},
		NotificationConfig: map[models.NotificationChannel]models.ChannelConfig{
			models.ChannelSlack:   {Recipient: server.URL + "/broken/slack"},
			models.ChannelWebhook: {Recipient: server.URL + "/webhook"},
		},
	}

	dispatcher.Dispatch(testAlert(rule))
	require.NoError(t, dispatcher.Stop())

	stats := dispatcher.GetStats()
	assert.Equal(t, int64(1), stats.TotalSent)
	assert.Equal(t, int64(1), stats.TotalFailed)

	// Both attempts were logged, the failure with its error message
	logs := store.snapshot()
	require.Len(t, logs, 2)
	byChannel := make(map[models.NotificationChannel]*models.NotificationLog)
	for _, log := range logs {
		byChannel[log.Channel] = log
	}
	require.Contains(t, byChannel, models.ChannelSlack)
	require.Contains(t, byChannel, models.ChannelWebhook)
	assert.False(t, byChannel[models.ChannelSlack].Sent)
	assert.NotEmpty(t, byChannel[models.ChannelSlack].Error)
	assert.True(t, byChannel[models.ChannelWebhook].Sent)
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		attempt := calls
		mu.Unlock()
		if attempt == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &logStore{}
	config := dispatcherConfig()
	config.RetryAttempts = 3
	dispatcher := NewDispatcher(store, nil, config)

	rule := &models.AlertRule{
		ID:                   "rule-1",
		Name:                 "error burst",
		Condition:            models.ConditionErrorCount,
		NotificationChannels: []models.NotificationChannel{models.ChannelWebhook},
		NotificationConfig: map[models.NotificationChannel]models.ChannelConfig{
			models.ChannelWebhook: {Recipient: server.URL},
		},
	}

	dispatcher.Dispatch(testAlert(rule))
	require.NoError(t, dispatcher.Stop())

	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
	assert.Equal(t, int64(1), dispatcher.GetStats().TotalSent)
}

func TestDispatchMissingRecipientFailsThatChannelOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &logStore{}
	dispatcher := NewDispatcher(store, nil, dispatcherConfig())

	rule := &models.AlertRule{
		ID:        "rule-1",
		Name:      "error burst",
		Condition: models.ConditionErrorCount,
		NotificationChannels: []models.NotificationChannel{
			models.ChannelSlack, models.ChannelWebhook,
		},
		NotificationConfig: map[models.NotificationChannel]models.ChannelConfig{
			models.ChannelWebhook: {Recipient: server.URL},
		},
	}

	dispatcher.Dispatch(testAlert(rule))
	require.NoError(t, dispatcher.Stop())

	stats := dispatcher.GetStats()
	assert.Equal(t, int64(1), stats.TotalSent)
	assert.Equal(t, int64(1), stats.TotalFailed)
}

func TestDispatchDisabledDoesNothing(t *testing.T) {
	store := &logStore{}
	config := dispatcherConfig()
	config.Enabled = false
	dispatcher := NewDispatcher(store, nil, config)

	rule := &models.AlertRule{
		ID:                   "rule-1",
		Name:                 "error burst",
		Condition:            models.ConditionErrorCount,
		NotificationChannels: []models.NotificationChannel{models.ChannelSlack},
	}

	dispatcher.Dispatch(testAlert(rule))
	require.NoError(t, dispatcher.Stop())

	assert.Empty(t, store.snapshot())
	assert.Equal(t, int64(0), dispatcher.GetStats().TotalSent)
}

func TestBuildSubjectUsesEventSeverity(t *testing.T) {
	rule := &models.AlertRule{Name: "critical watch"}

	a := testAlert(rule)
	assert.Equal(t, "🔴 Alert: critical watch", buildSubject(a))

	a.Event = nil
	assert.Equal(t, "⚠️ Alert: critical watch", buildSubject(a))

	severity := models.SeverityLow
	a.Rule = &models.AlertRule{Name: "critical watch", Severity: &severity}
	assert.Equal(t, "🟢 Alert: critical watch", buildSubject(a))
}

func TestBuildBodyIncludesContext(t *testing.T) {
	rule := &models.AlertRule{Name: "error burst", Condition: models.ConditionErrorCount}
	body := buildBody(testAlert(rule))

	assert.Contains(t, body, "12 errors in the last 5 minutes")
	assert.Contains(t, body, "Condition: ERROR_COUNT")
	assert.Contains(t, body, "Source: backend")
	assert.Contains(t, body, "Group: grp-1 (12 occurrences)")
	assert.Contains(t, body, "Fired at: 2025-06-01T12:00:00Z")
}
