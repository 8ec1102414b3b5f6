// File: internal/aggregate/window.go
package aggregate

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	shardCount    = 16
	defaultMaxAge = 2 * time.Hour
)

// Windows maintains per-key sliding event-time windows. Each key owns
// an append-ordered series of timestamps; counts and rates are computed
// over a trailing window at query time. Entries older than the
// retention horizon are evicted lazily on the write and query paths,
// so idle keys cost nothing until touched.
type Windows struct {
	shards [shardCount]*shard

	mu     sync.RWMutex
	maxAge time.Duration
}

type shard struct {
	mu     sync.Mutex
	series map[string]*series
}

type series struct {
	times []time.Time
}

// NewWindows creates a new sliding window aggregator
func NewWindows() *Windows {
	w := &Windows{maxAge: defaultMaxAge}
	for i := range w.shards {
		w.shards[i] = &shard{series: make(map[string]*series)}
	}
	return w
}

// SetMaxAge raises or lowers the retention horizon. Callers must keep
// it at least as large as the widest window they query.
func (w *Windows) SetMaxAge(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	w.mu.Lock()
	w.maxAge = maxAge
	w.mu.Unlock()
}

func (w *Windows) getMaxAge() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.maxAge
}

func (w *Windows) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return w.shards[h.Sum32()%shardCount]
}

// evict drops entries older than the horizon. Caller holds the shard lock.
func (s *series) evict(cutoff time.Time) {
	i := 0
	for i < len(s.times) && s.times[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		s.times = append(s.times[:0], s.times[i:]...)
	}
}

// Record adds one event occurrence to a key's series
func (w *Windows) Record(key string, at time.Time) {
	maxAge := w.getMaxAge()
	sh := w.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	ser, ok := sh.series[key]
	if !ok {
		ser = &series{}
		sh.series[key] = ser
	}
	// A future-dated timestamp must not drag the eviction horizon past
	// still-live entries.
	cutoff := at
	if now := time.Now(); cutoff.After(now) {
		cutoff = now
	}
	ser.evict(cutoff.Add(-maxAge))
	ser.times = append(ser.times, at)
}

// Count returns the number of events for key within the trailing window
// ending at now.
func (w *Windows) Count(key string, window time.Duration, now time.Time) int {
	maxAge := w.getMaxAge()
	sh := w.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	ser, ok := sh.series[key]
	if !ok {
		return 0
	}
	ser.evict(now.Add(-maxAge))

	cutoff := now.Add(-window)
	count := 0
	for _, t := range ser.times {
		if !t.Before(cutoff) && !t.After(now) {
			count++
		}
	}
	return count
}

// Rate returns the events-per-minute rate for key over the trailing window.
func (w *Windows) Rate(key string, window time.Duration, now time.Time) float64 {
	if window <= 0 {
		return 0
	}
	count := w.Count(key, window, now)
	return float64(count) / window.Minutes()
}

// CountBetween returns the number of events for key in [from, to). Used
// for baseline windows that exclude the current spike window.
func (w *Windows) CountBetween(key string, from, to time.Time) int {
	maxAge := w.getMaxAge()
	sh := w.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	ser, ok := sh.series[key]
	if !ok {
		return 0
	}
	ser.evict(to.Add(-maxAge))

	count := 0
	for _, t := range ser.times {
		if !t.Before(from) && t.Before(to) {
			count++
		}
	}
	return count
}

// DropKey removes a key's series entirely
func (w *Windows) DropKey(key string) {
	sh := w.shardFor(key)
	sh.mu.Lock()
	delete(sh.series, key)
	sh.mu.Unlock()
}

// KeyCount returns the number of live series across all shards
func (w *Windows) KeyCount() int {
	total := 0
	for _, sh := range w.shards {
		sh.mu.Lock()
		total += len(sh.series)
		sh.mu.Unlock()
	}
	return total
}
