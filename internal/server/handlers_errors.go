// File: internal/server/handlers_errors.go
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// parseIntQuery reads an integer query parameter with a fallback
func parseIntQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// parseErrorFilter builds an event filter from query parameters
func parseErrorFilter(r *http.Request) models.ErrorFilter {
	query := r.URL.Query()
	filter := models.ErrorFilter{
		Skip:  parseIntQuery(r, "skip", 0),
		Limit: parseIntQuery(r, "limit", 100),
	}

	if raw := query.Get("error_type"); raw != "" {
		value := models.ErrorType(raw)
		filter.ErrorType = &value
	}
	if raw := query.Get("severity"); raw != "" {
		value := models.Severity(raw)
		filter.Severity = &value
	}
	if raw := query.Get("source"); raw != "" {
		filter.Source = &raw
	}
	if raw := query.Get("status"); raw != "" {
		value := models.ErrorStatus(raw)
		filter.Status = &value
	}
	if raw := query.Get("search"); raw != "" {
		filter.Search = &raw
	}
	if raw := query.Get("start_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.StartDate = &t
		}
	}
	if raw := query.Get("end_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.EndDate = &t
		}
	}
	return filter
}

// createErrorHandler ingests a new error event
func (s *HTTPServer) createErrorHandler(w http.ResponseWriter, r *http.Request) {
	var event models.ErrorEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ingested, err := s.ingest.Ingest(r.Context(), &event)
	if err != nil {
		s.writeAppError(w, "Failed to ingest error event", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, ingested)
}

// listErrorsHandler lists error events matching the query filters
func (s *HTTPServer) listErrorsHandler(w http.ResponseWriter, r *http.Request) {
	filter := parseErrorFilter(r)

	events, err := s.storage.GetErrors(r.Context(), filter)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve error events", err)
		return
	}

	total, err := s.storage.CountErrors(r.Context(), filter)
	if err != nil {
		s.writeAppError(w, "Failed to count error events", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"errors": events,
		"total":  total,
	})
}

// getErrorHandler gets one error event
func (s *HTTPServer) getErrorHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	event, err := s.storage.GetError(r.Context(), id)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve error event", err)
		return
	}

	s.writeJSON(w, http.StatusOK, event)
}

// updateErrorHandler applies a partial update to an error event.
// Transitioning into RESOLVED stamps resolved_at; transitioning out
// clears it.
func (s *HTTPServer) updateErrorHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var update models.ErrorUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if fields := update.Validate(); fields != nil {
		s.writeAppError(w, "Invalid error update", utils.NewValidationError("Invalid error update", fields))
		return
	}

	event, err := s.storage.GetError(r.Context(), id)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve error event", err)
		return
	}

	if update.Status != nil {
		if *update.Status == models.StatusResolved && event.Status != models.StatusResolved {
			now := time.Now().UTC()
			event.ResolvedAt = &now
		} else if *update.Status != models.StatusResolved {
			event.ResolvedAt = nil
		}
		event.Status = *update.Status
	}
	if update.AssignedTo != nil {
		event.AssignedTo = *update.AssignedTo
	}
	if update.Notes != nil {
		event.Notes = *update.Notes
	}

	if err := s.storage.UpdateError(r.Context(), event); err != nil {
		s.writeAppError(w, "Failed to update error event", err)
		return
	}

	s.writeJSON(w, http.StatusOK, event)
}

// deleteErrorHandler deletes one error event
func (s *HTTPServer) deleteErrorHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.storage.DeleteError(r.Context(), id); err != nil {
		s.writeAppError(w, "Failed to delete error event", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Error event deleted",
	})
}

// Statistics Handlers

// statsSummaryHandler returns aggregate error counts
func (s *HTTPServer) statsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	days := parseIntQuery(r, "days", 7)
	if days < 1 {
		days = 7
	}

	summary, err := s.storage.GetStatsSummary(r.Context(), days)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve statistics summary", err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// statsTimelineHandler returns daily error counts
func (s *HTTPServer) statsTimelineHandler(w http.ResponseWriter, r *http.Request) {
	days := parseIntQuery(r, "days", 7)
	if days < 1 {
		days = 7
	}

	timeline, err := s.storage.GetTimeline(r.Context(), days)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve error timeline", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"timeline": timeline,
	})
}

// statsTopErrorsHandler returns the most frequent errors
func (s *HTTPServer) statsTopErrorsHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 10)
	days := parseIntQuery(r, "days", 7)
	if days < 1 {
		days = 7
	}

	top, err := s.storage.GetTopErrors(r.Context(), limit, days)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve top errors", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"top_errors": top,
	})
}
