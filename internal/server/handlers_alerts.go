// File: internal/server/handlers_alerts.go
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/smartdevs17/error-tracker/internal/models"
)

// listAlertsHandler lists all alert rules
func (s *HTTPServer) listAlertsHandler(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.GetRules(r.Context())
	if err != nil {
		s.writeAppError(w, "Failed to retrieve alert rules", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
	})
}

// createAlertHandler creates a new alert rule
func (s *HTTPServer) createAlertHandler(w http.ResponseWriter, r *http.Request) {
	// New rules default to active unless the payload says otherwise
	rule := models.AlertRule{IsActive: true, CooldownMinutes: 15}
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.engine.CreateRule(r.Context(), &rule)
	if err != nil {
		s.writeAppError(w, "Failed to create alert rule", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

// getAlertHandler gets one alert rule
func (s *HTTPServer) getAlertHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rule, err := s.engine.GetRule(r.Context(), id)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve alert rule", err)
		return
	}

	s.writeJSON(w, http.StatusOK, rule)
}

// updateAlertHandler applies a partial update to an alert rule
func (s *HTTPServer) updateAlertHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var update models.AlertRuleUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := s.engine.UpdateRule(r.Context(), id, &update)
	if err != nil {
		s.writeAppError(w, "Failed to update alert rule", err)
		return
	}

	s.writeJSON(w, http.StatusOK, rule)
}

// deleteAlertHandler deletes an alert rule
func (s *HTTPServer) deleteAlertHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.engine.DeleteRule(r.Context(), id); err != nil {
		s.writeAppError(w, "Failed to delete alert rule", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Alert rule deleted",
	})
}

// toggleAlertHandler flips a rule's active flag
func (s *HTTPServer) toggleAlertHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rule, err := s.engine.ToggleRule(r.Context(), id)
	if err != nil {
		s.writeAppError(w, "Failed to toggle alert rule", err)
		return
	}

	s.writeJSON(w, http.StatusOK, rule)
}

// alertNotificationsHandler lists recent delivery attempts for a rule
func (s *HTTPServer) alertNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := parseIntQuery(r, "limit", 50)

	// 404 on unknown rule rather than an empty list
	if _, err := s.engine.GetRule(r.Context(), id); err != nil {
		s.writeAppError(w, "Failed to retrieve alert rule", err)
		return
	}

	logs, err := s.storage.GetNotificationLogs(r.Context(), id, limit)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve notification logs", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": logs,
	})
}

// Health Handlers

// rootHandler identifies the service
func (s *HTTPServer) rootHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "error-tracker",
		"version": "1.0.0",
		"status":  "running",
		"health":  "/health",
		"metrics": "/metrics",
	})
}

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"version":   "1.0.0",
	})
}

// detailedHealthHandler returns per-component health status
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	storageHealthy := s.storage.Ping() == nil

	status := "healthy"
	if !storageHealthy {
		status = "degraded"
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
		"uptime":    time.Since(s.startTime).String(),
		"components": map[string]interface{}{
			"storage":      storageHealthy,
			"alert_engine": s.engine != nil && s.engine.IsRunning(),
		},
	}
	if s.ingest != nil {
		health["ingest"] = s.ingest.GetStats()
	}
	if s.engine != nil {
		health["alerts"] = s.engine.GetStats()
	}
	if s.dispatcher != nil {
		health["notifications"] = s.dispatcher.GetStats()
	}

	code := http.StatusOK
	if !storageHealthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}
