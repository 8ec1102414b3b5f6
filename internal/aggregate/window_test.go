// File: internal/aggregate/window_test.go
package aggregate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowsCount(t *testing.T) {
	w := NewWindows()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w.Record("rule-1", now.Add(-10*time.Minute))
	w.Record("rule-1", now.Add(-4*time.Minute))
	w.Record("rule-1", now.Add(-1*time.Minute))
	w.Record("rule-1", now)

	assert.Equal(t, 3, w.Count("rule-1", 5*time.Minute, now))
	assert.Equal(t, 4, w.Count("rule-1", 15*time.Minute, now))
	assert.Equal(t, 0, w.Count("rule-2", 5*time.Minute, now))
}

func TestWindowsCountExcludesFutureEvents(t *testing.T) {
	w := NewWindows()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w.Record("rule-1", now.Add(2*time.Minute))
	w.Record("rule-1", now.Add(-2*time.Minute))

	assert.Equal(t, 1, w.Count("rule-1", 5*time.Minute, now))
}

func TestWindowsRate(t *testing.T) {
	w := NewWindows()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		w.Record("rule-1", now.Add(-time.Duration(i)*10*time.Second))
	}

	// 30 events over 5 minutes is 6 per minute
	rate := w.Rate("rule-1", 5*time.Minute, now)
	assert.InDelta(t, 6.0, rate, 0.01)

	assert.Equal(t, 0.0, w.Rate("rule-1", 0, now))
}

func TestWindowsCountBetween(t *testing.T) {
	w := NewWindows()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w.Record("rule-1", now.Add(-50*time.Minute))
	w.Record("rule-1", now.Add(-30*time.Minute))
	w.Record("rule-1", now.Add(-5*time.Minute))

	// Baseline window [now-60m, now-10m) sees the two older events only
	baseline := w.CountBetween("rule-1", now.Add(-60*time.Minute), now.Add(-10*time.Minute))
	assert.Equal(t, 2, baseline)
}

func TestWindowsLazyEviction(t *testing.T) {
	w := NewWindows()
	w.SetMaxAge(10 * time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w.Record("rule-1", now.Add(-30*time.Minute))
	w.Record("rule-1", now.Add(-1*time.Minute))

	// The stale entry is dropped when the series is next touched
	assert.Equal(t, 1, w.Count("rule-1", time.Hour, now))
}

func TestWindowsFutureEventDoesNotEvictLiveEntries(t *testing.T) {
	w := NewWindows()
	w.SetMaxAge(10 * time.Minute)
	now := time.Now().UTC()

	w.Record("rule-1", now.Add(-time.Minute))
	w.Record("rule-1", now.Add(48*time.Hour))

	// The misdated write must not drag the eviction horizon forward
	assert.Equal(t, 1, w.Count("rule-1", 5*time.Minute, now))
}

func TestWindowsDropKey(t *testing.T) {
	w := NewWindows()
	now := time.Now().UTC()

	w.Record("rule-1", now)
	w.Record("rule-2", now)
	require.Equal(t, 2, w.KeyCount())

	w.DropKey("rule-1")
	assert.Equal(t, 1, w.KeyCount())
	assert.Equal(t, 0, w.Count("rule-1", time.Minute, now))
	assert.Equal(t, 1, w.Count("rule-2", time.Minute, now))
}

func TestWindowsConcurrentAccess(t *testing.T) {
	w := NewWindows()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("rule-%d", n%4)
			for j := 0; j < 100; j++ {
				w.Record(key, now)
				w.Count(key, time.Minute, now)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 4; i++ {
		total += w.Count(fmt.Sprintf("rule-%d", i), time.Minute, now)
	}
	assert.Equal(t, 800, total)
}
