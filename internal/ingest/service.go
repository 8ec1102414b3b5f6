// File: internal/ingest/service.go
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/error-tracker/internal/metrics"
	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/internal/storage"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// EventSink receives every successfully ingested event. The alert engine
// implements this to observe the live event stream.
type EventSink interface {
	HandleEvent(event *models.ErrorEvent, group *models.ErrorGroup, isNewGroup bool)
}

// Stats tracks ingestion statistics
type Stats struct {
	TotalIngested  int64      `json:"total_ingested"`
	TotalRejected  int64      `json:"total_rejected"`
	GroupsCreated  int64      `json:"groups_created"`
	LastIngestedAt *time.Time `json:"last_ingested_at,omitempty"`
}

// Service runs the ingestion pipeline: validate, resolve the owning
// group, persist the event, fold the occurrence into the group rollups,
// then hand the event to the sink.
type Service struct {
	storage      storage.Storage
	resolver     *GroupResolver
	metrics      *metrics.Manager
	logger       *logrus.Logger
	queryTimeout time.Duration

	mu    sync.RWMutex
	sink  EventSink
	stats Stats
}

// NewService creates a new ingestion service
func NewService(store storage.Storage, resolver *GroupResolver, metricsManager *metrics.Manager, queryTimeout time.Duration) *Service {
	return &Service{
		storage:      store,
		resolver:     resolver,
		metrics:      metricsManager,
		logger:       utils.GetLogger(),
		queryTimeout: queryTimeout,
	}
}

// SetSink registers the downstream event sink
func (s *Service) SetSink(sink EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// GetStats returns a snapshot of ingestion statistics
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Ingest processes one reported error event. Validation happens before
// any state mutation; a rejected event leaves no trace.
func (s *Service) Ingest(ctx context.Context, event *models.ErrorEvent) (*models.ErrorEvent, error) {
	start := time.Now()

	if fields := event.Validate(); fields != nil {
		s.mu.Lock()
		s.stats.TotalRejected++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.GetPrometheusMetrics().RecordErrorRejected()
		}
		return nil, utils.NewValidationError("Invalid error event", fields)
	}

	if event.ID == "" {
		event.ID = utils.GenerateID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Status == "" {
		event.Status = models.StatusOpen
	}

	// Each storage call runs under its own deadline so one slow call
	// cannot starve the rest of the pipeline.
	group, isNewGroup, err := s.resolver.Resolve(ctx, event)
	if err != nil {
		return nil, err
	}
	event.GroupID = group.ID

	saveCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	err = s.storage.SaveError(saveCtx, event)
	cancel()
	if err != nil {
		return nil, err
	}

	rollCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	err = s.storage.ApplyGroupOccurrence(rollCtx, group.ID, event.Timestamp, event.Severity)
	cancel()
	if err != nil {
		// The event row is already committed; the rollup can lag one
		// occurrence behind under a mid-pipeline failure.
		s.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"group_id": group.ID,
			"error":    err.Error(),
		}).Error("Failed to apply group occurrence")
		return nil, err
	}

	// Mirror the rollup on the in-memory group so the sink sees the
	// occurrence that carried it.
	group.TotalOccurrences++
	if event.Timestamp.Before(group.FirstSeen) {
		group.FirstSeen = event.Timestamp
	}
	if event.Timestamp.After(group.LastSeen) {
		group.LastSeen = event.Timestamp
	}
	if event.Severity.Rank() > group.Severity.Rank() {
		group.Severity = event.Severity
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.stats.TotalIngested++
	if isNewGroup {
		s.stats.GroupsCreated++
	}
	s.stats.LastIngestedAt = &now
	sink := s.sink
	s.mu.Unlock()

	if s.metrics != nil {
		pm := s.metrics.GetPrometheusMetrics()
		pm.RecordErrorIngested(string(event.ErrorType), string(event.Severity), event.Source, time.Since(start))
		if isNewGroup {
			pm.RecordGroupCreated()
		}
	}

	s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"group_id":   group.ID,
		"error_type": event.ErrorType,
		"severity":   event.Severity,
		"new_group":  isNewGroup,
	}).Debug("Ingested error event")

	if sink != nil {
		sink.HandleEvent(event, group, isNewGroup)
	}
	return event, nil
}
