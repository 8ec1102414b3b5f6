// File: internal/ingest/resolver_test.go
package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/internal/storage"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// fakeStore is an in-memory Storage covering the resolver and service
// paths. The fingerprint map enforces the same unique-constraint
// semantics as the real backends.
type fakeStore struct {
	storage.Storage

	mu             sync.Mutex
	groupsByFP     map[string]*models.ErrorGroup
	groupsByID     map[string]*models.ErrorGroup
	events         []*models.ErrorEvent
	timeoutInserts int // fail this many InsertGroup calls with a timeout first
	stallReads     int // block this many GetGroupByFingerprint calls until ctx expiry
	readCalls      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groupsByFP: make(map[string]*models.ErrorGroup),
		groupsByID: make(map[string]*models.ErrorGroup),
	}
}

func (f *fakeStore) GetGroupByFingerprint(ctx context.Context, fp string) (*models.ErrorGroup, error) {
	f.mu.Lock()
	f.readCalls++
	if f.stallReads > 0 {
		f.stallReads--
		f.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	defer f.mu.Unlock()

	group, ok := f.groupsByFP[fp]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", fp)
	}
	copied := *group
	return &copied, nil
}

func (f *fakeStore) InsertGroup(ctx context.Context, group *models.ErrorGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timeoutInserts > 0 {
		f.timeoutInserts--
		return utils.NewAppError(utils.ErrCodeStorageTimeout, "Insert timed out", "")
	}
	if _, ok := f.groupsByFP[group.Fingerprint]; ok {
		return utils.NewAppError(utils.ErrCodeConflict, "Fingerprint already owned by another group", group.Fingerprint)
	}

	copied := *group
	f.groupsByFP[group.Fingerprint] = &copied
	f.groupsByID[group.ID] = &copied
	return nil
}

func (f *fakeStore) SaveError(ctx context.Context, event *models.ErrorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *event
	f.events = append(f.events, &copied)
	return nil
}

func (f *fakeStore) ApplyGroupOccurrence(ctx context.Context, groupID string, occurredAt time.Time, severity models.Severity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	group, ok := f.groupsByID[groupID]
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

func testEvent(message string) *models.ErrorEvent {
	return &models.ErrorEvent{
		Message:   message,
		ErrorType: models.ErrorTypeDatabase,
		Severity:  models.SeverityMedium,
		Source:    "backend",
		Timestamp: time.Now().UTC(),
	}
}

func TestResolveCreatesGroupOnFirstSight(t *testing.T) {
	store := newFakeStore()
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)

	group, created, err := resolver.Resolve(context.Background(), testEvent("connection refused"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, models.StatusOpen, group.Status)
	assert.Equal(t, int64(0), group.TotalOccurrences)

	// Second resolve finds the same group
	again, created, err := resolver.Resolve(context.Background(), testEvent("connection refused"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, group.ID, again.ID)
}

func TestResolveConcurrentSameFingerprint(t *testing.T) {
	store := newFakeStore()
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)
	service := NewService(store, resolver, nil, time.Second)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Ingest(context.Background(), testEvent("connection refused"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Exactly one group owns the fingerprint, with every occurrence counted
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.groupsByFP, 1)
	for _, group := range store.groupsByFP {
		assert.Equal(t, int64(n), group.TotalOccurrences)
	}
	assert.Len(t, store.events, n)
}

func TestResolveRetriesTimeouts(t *testing.T) {
	store := newFakeStore()
	store.timeoutInserts = 2
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)

	group, created, err := resolver.Resolve(context.Background(), testEvent("connection refused"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, group)
}

func TestResolveGivesUpAfterRetryBudget(t *testing.T) {
	store := newFakeStore()
	store.timeoutInserts = 10
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)

	_, _, err := resolver.Resolve(context.Background(), testEvent("connection refused"))
	require.Error(t, err)
	assert.True(t, utils.IsTimeout(err))
}

func TestResolveRetriesStalledCallUnderFreshDeadline(t *testing.T) {
	store := newFakeStore()
	store.stallReads = 1
	resolver := NewGroupResolver(store, nil, 20*time.Millisecond, 3, time.Millisecond)

	group, created, err := resolver.Resolve(context.Background(), testEvent("connection refused"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, group)

	// The stalled attempt burned only its own deadline; the retry
	// reached storage again with a live context
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.GreaterOrEqual(t, store.readCalls, 2)
}

func TestResolveStalledBudgetSurfacesStorageTimeout(t *testing.T) {
	store := newFakeStore()
	store.stallReads = 3
	resolver := NewGroupResolver(store, nil, 10*time.Millisecond, 3, time.Millisecond)

	_, _, err := resolver.Resolve(context.Background(), testEvent("connection refused"))
	require.Error(t, err)
	assert.True(t, utils.IsTimeout(err))

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrCodeStorageTimeout, appErr.Code)
}

func TestIngestRejectsInvalidEvent(t *testing.T) {
	store := newFakeStore()
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)
	service := NewService(store, resolver, nil, time.Second)

	event := testEvent("")
	event.Severity = "BOGUS"

	_, err := service.Ingest(context.Background(), event)
	require.Error(t, err)
	assert.True(t, utils.IsValidation(err))

	// Rejected events leave no trace
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.events)
	assert.Empty(t, store.groupsByFP)
}

func TestIngestMonotonicSeenBounds(t *testing.T) {
	store := newFakeStore()
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)
	service := NewService(store, resolver, nil, time.Second)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := testEvent("connection refused")
	first.Timestamp = base
	_, err := service.Ingest(context.Background(), first)
	require.NoError(t, err)

	// An out-of-order earlier event lowers first_seen but not last_seen
	early := testEvent("connection refused")
	early.Timestamp = base.Add(-time.Hour)
	_, err = service.Ingest(context.Background(), early)
	require.NoError(t, err)

	late := testEvent("connection refused")
	late.Timestamp = base.Add(time.Hour)
	_, err = service.Ingest(context.Background(), late)
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, group := range store.groupsByFP {
		assert.Equal(t, base.Add(-time.Hour), group.FirstSeen)
		assert.Equal(t, base.Add(time.Hour), group.LastSeen)
	}
}

func TestIngestKeepsMostSevereEver(t *testing.T) {
	store := newFakeStore()
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)
	service := NewService(store, resolver, nil, time.Second)

	critical := testEvent("connection refused")
	critical.Severity = models.SeverityCritical
	_, err := service.Ingest(context.Background(), critical)
	require.NoError(t, err)

	// Later low-severity noise must not hide the critical flare
	low := testEvent("connection refused")
	low.Severity = models.SeverityLow
	_, err = service.Ingest(context.Background(), low)
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, group := range store.groupsByFP {
		assert.Equal(t, models.SeverityCritical, group.Severity)
	}
}

func TestIngestNotifiesSink(t *testing.T) {
	store := newFakeStore()
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)
	service := NewService(store, resolver, nil, time.Second)

	var (
		mu       sync.Mutex
		newFlags []bool
	)
	service.SetSink(sinkFunc(func(event *models.ErrorEvent, group *models.ErrorGroup, isNewGroup bool) {
		mu.Lock()
		newFlags = append(newFlags, isNewGroup)
		mu.Unlock()
	}))

	_, err := service.Ingest(context.Background(), testEvent("connection refused"))
	require.NoError(t, err)
	_, err = service.Ingest(context.Background(), testEvent("connection refused"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, newFlags)
}

func TestIngestSinkSeesRolledUpGroup(t *testing.T) {
	store := newFakeStore()
	resolver := NewGroupResolver(store, nil, time.Second, 3, time.Millisecond)
	service := NewService(store, resolver, nil, time.Second)

	var (
		mu         sync.Mutex
		counts     []int64
		severities []models.Severity
	)
	service.SetSink(sinkFunc(func(event *models.ErrorEvent, group *models.ErrorGroup, isNewGroup bool) {
		mu.Lock()
		counts = append(counts, group.TotalOccurrences)
		severities = append(severities, group.Severity)
		mu.Unlock()
	}))

	_, err := service.Ingest(context.Background(), testEvent("connection refused"))
	require.NoError(t, err)

	critical := testEvent("connection refused")
	critical.Severity = models.SeverityCritical
	_, err = service.Ingest(context.Background(), critical)
	require.NoError(t, err)

	// The sink's group includes the occurrence that carried it
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2}, counts)
	assert.Equal(t, []models.Severity{models.SeverityMedium, models.SeverityCritical}, severities)
}

// sinkFunc adapts a function to the EventSink interface
type sinkFunc func(*models.ErrorEvent, *models.ErrorGroup, bool)

func (f sinkFunc) HandleEvent(event *models.ErrorEvent, group *models.ErrorGroup, isNewGroup bool) {
	f(event, group, isNewGroup)
}
