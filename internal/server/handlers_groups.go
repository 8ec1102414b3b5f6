// File: internal/server/handlers_groups.go
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

const recentGroupErrorsLimit = 10

// parseGroupFilter builds a group filter from query parameters
func parseGroupFilter(r *http.Request) models.GroupFilter {
	query := r.URL.Query()
	filter := models.GroupFilter{}

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
	return filter
}

// listGroupsHandler lists error groups matching the query filters
func (s *HTTPServer) listGroupsHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := s.storage.GetGroups(r.Context(), parseGroupFilter(r))
	if err != nil {
		s.writeAppError(w, "Failed to retrieve error groups", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
	})
}

// groupDetail is the group read model including its newest member events
type groupDetail struct {
	*models.ErrorGroup
	RecentErrors []*models.ErrorEvent `json:"recent_errors"`
}

// getGroupHandler gets one group with its recent member events
func (s *HTTPServer) getGroupHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	group, err := s.storage.GetGroup(r.Context(), id)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve error group", err)
		return
	}

	recent, err := s.storage.GetRecentGroupErrors(r.Context(), id, recentGroupErrorsLimit)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve group errors", err)
		return
	}

	s.writeJSON(w, http.StatusOK, groupDetail{
		ErrorGroup:   group,
		RecentErrors: recent,
	})
}

// updateGroupHandler applies a partial update to a group
func (s *HTTPServer) updateGroupHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var update models.GroupUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if fields := update.Validate(); fields != nil {
		s.writeAppError(w, "Invalid group update", utils.NewValidationError("Invalid group update", fields))
		return
	}

	group, err := s.storage.GetGroup(r.Context(), id)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve error group", err)
		return
	}

	if update.Status != nil {
		group.Status = *update.Status
	}
	if update.AssignedTo != nil {
		group.AssignedTo = *update.AssignedTo
	}
	if update.Notes != nil {
		group.Notes = *update.Notes
	}

	if err := s.storage.UpdateGroup(r.Context(), group); err != nil {
		s.writeAppError(w, "Failed to update error group", err)
		return
	}

	s.writeJSON(w, http.StatusOK, group)
}

// deleteGroupHandler deletes a group and its member events
func (s *HTTPServer) deleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.storage.DeleteGroup(r.Context(), id); err != nil {
		s.writeAppError(w, "Failed to delete error group", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Error group deleted",
	})
}
