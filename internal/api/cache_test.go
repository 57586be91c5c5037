package api

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*AvailabilityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := zerolog.New(io.Discard)
	return NewAvailabilityCache(rdb, time.Minute, &logger), mr
}

func TestAvailabilityCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 2026, 2)
	assert.False(t, ok)

	payload := []byte(`{"year":2026,"month":2,"days":[]}`)
	cache.Set(ctx, 2026, 2, payload)

	got, ok := cache.Get(ctx, 2026, 2)
	require.True(t, ok)
	assert.Equal(t, payload, got)

	// Another month stays a miss.
	_, ok = cache.Get(ctx, 2026, 3)
	assert.False(t, ok)
}

func TestAvailabilityCacheTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, 2026, 2, []byte("x"))
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, 2026, 2)
	assert.False(t, ok)
}

func TestAvailabilityCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, 2026, 2, []byte("feb"))
	cache.Set(ctx, 2026, 3, []byte("mar"))

	cache.Invalidate(ctx)

	_, ok := cache.Get(ctx, 2026, 2)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, 2026, 3)
	assert.False(t, ok)
}

// End-to-end through the server: a cached month is dropped when a holiday
// mutation goes through, so the next query reflects the change.
func TestAvailableDaysCacheInvalidatedByHolidayMutation(t *testing.T) {
	env := newAPIEnvWithCache(t)

	resp := env.do(t, http.MethodGet, "/api/available-days?year=2026&month=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var before availableDaysResponse
	decodeBody(t, resp, &before)
	assert.Len(t, before.Days, 24)

	// Second read is served from redis and matches.
	resp = env.do(t, http.MethodGet, "/api/available-days?year=2026&month=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cached availableDaysResponse
	decodeBody(t, resp, &cached)
	assert.Equal(t, before, cached)

	resp = env.do(t, http.MethodPost, "/api/holidays", map[string]string{"date": "2026-02-16"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/available-days?year=2026&month=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var after availableDaysResponse
	decodeBody(t, resp, &after)
	assert.Len(t, after.Days, 23)
	assert.NotContains(t, after.Days, "2026-02-16")
}

func TestAvailabilityCacheUnreachableRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := zerolog.New(io.Discard)
	cache := NewAvailabilityCache(rdb, time.Minute, &logger)

	// Errors degrade to cache misses, never failures.
	_, ok := cache.Get(context.Background(), 2026, 2)
	assert.False(t, ok)
	cache.Set(context.Background(), 2026, 2, []byte("x"))
	cache.Invalidate(context.Background())
}
