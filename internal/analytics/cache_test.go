package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestFetchJSONCachesLoaderResult(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []TrendPoint{{InvoiceCount: 3, TotalAmount: 1200}}, nil
	}

	key, err := cache.BuildKey(ctx, "analytics", "trend", "2025-03-01", "2025-03-31")
	require.NoError(t, err)

	var first []TrendPoint
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, 1200.0, first[0].TotalAmount)

	var second []TrendPoint
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
}

func TestBumpOrphansOldKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "analytics", "trend", "a")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "analytics", "trend", "a")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("query failed")
	var dest []TrendPoint
	err := cache.FetchJSON(ctx, "k", &dest, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// nothing was cached for the failed key
	calls := 0
	require.NoError(t, cache.FetchJSON(ctx, "k", &dest, func(context.Context) (any, error) {
		calls++
		return []TrendPoint{}, nil
	}))
	require.Equal(t, 1, calls)
}

func TestNilClientPassesThrough(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()

	calls := 0
	var dest []TrendPoint
	for i := 0; i < 2; i++ {
		require.NoError(t, cache.FetchJSON(ctx, "k", &dest, func(context.Context) (any, error) {
			calls++
			return []TrendPoint{}, nil
		}))
	}
	require.Equal(t, 2, calls)
	require.NoError(t, cache.Bump(ctx))
}
