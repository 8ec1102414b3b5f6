// File: internal/ingest/resolver.go
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/error-tracker/internal/fingerprint"
	"github.com/smartdevs17/error-tracker/internal/metrics"
	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/internal/storage"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

const defaultQueryTimeout = 5 * time.Second

// GroupResolver maps error events onto their error group, creating the
// group on first sight. The storage layer's unique fingerprint index is
// the arbiter under concurrency: when two resolvers race to create the
// same group, the insert loser re-reads the winner's row.
type GroupResolver struct {
	storage       storage.Storage
	metrics       *metrics.Manager
	logger        *logrus.Logger
	queryTimeout  time.Duration
	retryAttempts int
	retryDelay    time.Duration
}

// NewGroupResolver creates a new group resolver
func NewGroupResolver(store storage.Storage, metricsManager *metrics.Manager, queryTimeout time.Duration, retryAttempts int, retryDelay time.Duration) *GroupResolver {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &GroupResolver{
		storage:       store,
		metrics:       metricsManager,
		logger:        utils.GetLogger(),
		queryTimeout:  queryTimeout,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
	}
}

// Resolve finds or creates the group owning the event's fingerprint.
// Returns the group and whether this call created it.
func (r *GroupResolver) Resolve(ctx context.Context, event *models.ErrorEvent) (*models.ErrorGroup, bool, error) {
	fp, pattern := fingerprint.Compute(event)

	var lastErr error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}

		group, created, err := r.resolveOnce(ctx, event, fp, pattern)
		if err == nil {
			return group, created, nil
		}
		if !utils.IsTimeout(err) {
			return nil, false, err
		}

		lastErr = err
		if r.metrics != nil {
			r.metrics.GetPrometheusMetrics().RecordStorageTimeout()
		}
		r.logger.WithFields(logrus.Fields{
			"fingerprint": fp,
			"attempt":     attempt + 1,
		}).Warn("Group resolution timed out, retrying")
	}

	// Surface a STORAGE_TIMEOUT once the retry budget is exhausted, even
	// when the last attempt died on a raw context deadline.
	var appErr *utils.AppError
	if !errors.As(lastErr, &appErr) {
		lastErr = utils.NewAppError(utils.ErrCodeStorageTimeout, "Group resolution timed out", lastErr.Error())
	}
	return nil, false, lastErr
}

// resolveOnce performs one read / insert-or-conflict / re-read cycle
// under its own deadline, so a stalled storage call burns one retry
// attempt instead of the whole budget.
func (r *GroupResolver) resolveOnce(ctx context.Context, event *models.ErrorEvent, fp, pattern string) (*models.ErrorGroup, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	group, err := r.storage.GetGroupByFingerprint(opCtx, fp)
	if err == nil {
		return group, false, nil
	}
	if !utils.IsNotFound(err) {
		return nil, false, err
	}

	candidate := &models.ErrorGroup{
		ID:             utils.GenerateID(),
		Fingerprint:    fp,
		ErrorType:      event.ErrorType,
		Severity:       event.Severity,
		Source:         event.Source,
		MessagePattern: pattern,
		Status:         models.StatusOpen,
		// Rollup counters start empty; the occurrence that created the
		// group is folded in by the same ApplyGroupOccurrence path as
		// every later one.
		TotalOccurrences: 0,
		FirstSeen:        event.Timestamp,
		LastSeen:         event.Timestamp,
	}

	err = r.storage.InsertGroup(opCtx, candidate)
	if err == nil {
		r.logger.WithFields(logrus.Fields{
			"group_id":    candidate.ID,
			"fingerprint": fp,
			"error_type":  event.ErrorType,
		}).Info("Created new error group")
		return candidate, true, nil
	}

	if utils.IsConflict(err) {
		// Another writer created the group between our read and insert
		if r.metrics != nil {
			r.metrics.GetPrometheusMetrics().RecordGroupConflict()
		}
		group, rerr := r.storage.GetGroupByFingerprint(opCtx, fp)
		if rerr != nil {
			return nil, false, rerr
		}
		return group, false, nil
	}
	return nil, false, err
}
