package prayer

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Fetcher is the external timings call the cache memoizes.
type Fetcher interface {
	Timings(ctx context.Context, lat, lng float64, at time.Time, settings Settings) (*Times, error)
}

// cacheKey identifies one external call. Coordinates are rounded to one
// decimal (~11 km) so subscribers in the same city share a fetch.
// Adjustments are excluded: they never reach the provider.
type cacheKey struct {
	date      string
	lat, lng  float64
	fajrAngle float64
	ishaAngle float64
	asrSchool int
}

// Cache memoizes prayer-time lookups for the duration of one dispatch run.
// Create it at run start, discard it at run end; there is no eviction and
// no cross-run persistence. Failures are cached too, so a failing provider
// is hit at most once per key per run.
//
// Safe for concurrent use. Population is race-and-discard: concurrent
// misses on the same key may each fetch, and the first write wins.
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[cacheKey]*Times // nil value = cached failure
}

// NewCache creates an empty per-run cache around fetcher.
func NewCache(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		entries: make(map[cacheKey]*Times),
	}
}

// Get returns prayer times for a location and day, fetching on first use.
// ok is false when the external service is unavailable; callers skip
// prayer-dependent triggers for this cycle rather than failing.
func (c *Cache) Get(ctx context.Context, lat, lng float64, settings Settings, at time.Time) (times *Times, ok bool) {
	key := cacheKey{
		date:      at.Format("2006-01-02"),
		lat:       roundCoord(lat),
		lng:       roundCoord(lng),
		fajrAngle: settings.FajrAngle,
		ishaAngle: settings.IshaAngle,
		asrSchool: settings.AsrShadowSchool,
	}

	c.mu.RLock()
	cached, hit := c.entries[key]
	c.mu.RUnlock()
	if hit {
		return cached, cached != nil
	}

	fetched, err := c.fetcher.Timings(ctx, lat, lng, at, settings)
	if err != nil {
		c.logger.Warn("prayer times unavailable", "lat", key.lat, "lng", key.lng, "error", err)
		fetched = nil
	}

	c.mu.Lock()
	if prev, exists := c.entries[key]; exists {
		fetched = prev
	} else {
		c.entries[key] = fetched
	}
	c.mu.Unlock()

	return fetched, fetched != nil
}

func roundCoord(n float64) float64 {
	return math.Round(n*10) / 10
}
