package prayer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher records calls and serves canned results or an error.
type countingFetcher struct {
	calls int
	times *Times
	err   error
}

func (f *countingFetcher) Timings(ctx context.Context, lat, lng float64, at time.Time, settings Settings) (*Times, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.times, nil
}

var cacheDay = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func TestCacheSharesFetchAcrossNearbyCoordinates(t *testing.T) {
	fetcher := &countingFetcher{times: &Times{Fajr: 310, Maghrib: 1120}}
	cache := NewCache(fetcher, nil)
	ctx := context.Background()

	// Both coordinates round to (48.9, 2.4).
	first, ok := cache.Get(ctx, 48.8566, 2.3522, Settings{}, cacheDay)
	require.True(t, ok)
	second, ok := cache.Get(ctx, 48.8901, 2.3988, Settings{}, cacheDay)
	require.True(t, ok)

	assert.Equal(t, 1, fetcher.calls)
	assert.Same(t, first, second)

	// A different rounded cell fetches again.
	_, ok = cache.Get(ctx, 43.2965, 5.3698, Settings{}, cacheDay)
	require.True(t, ok)
	assert.Equal(t, 2, fetcher.calls)
}

func TestCacheKeyIncludesCalculationSettings(t *testing.T) {
	fetcher := &countingFetcher{times: &Times{Fajr: 310}}
	cache := NewCache(fetcher, nil)
	ctx := context.Background()

	cache.Get(ctx, 48.8, 2.3, Settings{}, cacheDay)
	cache.Get(ctx, 48.8, 2.3, Settings{FajrAngle: 15, IshaAngle: 12}, cacheDay)
	cache.Get(ctx, 48.8, 2.3, Settings{AsrShadowSchool: 1}, cacheDay)
	assert.Equal(t, 3, fetcher.calls)

	// Adjustments never reach the provider, so they share an entry.
	cache.Get(ctx, 48.8, 2.3, Settings{Adjustments: map[string]int{"Fajr": 5}}, cacheDay)
	assert.Equal(t, 3, fetcher.calls)
}

func TestCacheCachesFailures(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("service unavailable")}
	cache := NewCache(fetcher, nil)
	ctx := context.Background()

	times, ok := cache.Get(ctx, 48.8, 2.3, Settings{}, cacheDay)
	assert.False(t, ok)
	assert.Nil(t, times)

	// The failing provider is not retried within the run.
	_, ok = cache.Get(ctx, 48.8, 2.3, Settings{}, cacheDay)
	assert.False(t, ok)
	assert.Equal(t, 1, fetcher.calls)
}
