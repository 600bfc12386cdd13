package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dicri/evidence-service/internal/domain"
)

func newMiniredisCache(t *testing.T) *StatsCache {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, time.Minute)
}

func TestStatsCache_HitAfterSet(t *testing.T) {
	ctx := context.Background()
	cache := newMiniredisCache(t)
	want := domain.GeneralStats{TotalCaseFiles: 2, Registering: 2}

	var got domain.GeneralStats
	slot, hit, err := cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.Set(ctx, slot, want))

	_, hit, err = cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, want, got)
}

// A value loaded before an invalidation must not be served after it.
func TestStatsCache_WriteAfterInvalidateIsRetired(t *testing.T) {
	ctx := context.Background()
	cache := newMiniredisCache(t)

	var got domain.GeneralStats
	slot, hit, err := cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Set(ctx, slot, domain.GeneralStats{TotalCaseFiles: 1}))

	_, hit, err = cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.False(t, hit, "stale value served after invalidation: %+v", got)
}

func TestStatsCache_InvalidateDropsEntries(t *testing.T) {
	ctx := context.Background()
	cache := newMiniredisCache(t)

	var got domain.GeneralStats
	slot, _, err := cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, slot, domain.GeneralStats{TotalCaseFiles: 5}))
	require.NoError(t, cache.Invalidate(ctx))

	_, hit, err := cache.Get(ctx, "general", &got)
	require.NoError(t, err)
	require.False(t, hit)
}
