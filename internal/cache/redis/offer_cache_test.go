package redis

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"galaswapbot/internal/domain"
)

// testCache connects to the server named by TEST_REDIS_ADDR and flushes the
// test database. Tests are skipped when no server is available.
func testCache(t *testing.T) *OfferCache {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := New(ctx, ClientConfig{Addr: addr, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Underlying().FlushDB(ctx).Err())
	return NewOfferCache(client)
}

func cachedSwap(id, usesSpent string) domain.Swap {
	gusdc := domain.TokenClassKey{Collection: "GUSDC", Category: "Unit", Type: "none", AdditionalKey: "none"}
	gala := domain.TokenClassKey{Collection: "GALA", Category: "Unit", Type: "none", AdditionalKey: "none"}
	return domain.Swap{
		SwapRequestID: id,
		OfferedBy:     "client|self",
		Offered:       []domain.SwapLeg{{TokenInstance: domain.InstanceOf(gusdc), Quantity: "150"}},
		Wanted:        []domain.SwapLeg{{TokenInstance: domain.InstanceOf(gala), Quantity: "3300"}},
		Uses:          "3",
		UsesSpent:     usesSpent,
	}
}

func TestOfferCacheUpsert(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	// First sight of a swap has no previous version.
	previous, err := cache.Upsert(ctx, cachedSwap("own-1", "0"))
	require.NoError(t, err)
	require.Nil(t, previous)

	// The second upsert returns the first version intact.
	previous, err = cache.Upsert(ctx, cachedSwap("own-1", "1"))
	require.NoError(t, err)
	require.NotNil(t, previous)
	require.Equal(t, "0", previous.UsesSpent)
	require.Equal(t, cachedSwap("own-1", "0"), *previous)

	// And the third sees the second, not the first.
	previous, err = cache.Upsert(ctx, cachedSwap("own-1", "2"))
	require.NoError(t, err)
	require.NotNil(t, previous)
	require.Equal(t, "1", previous.UsesSpent)
}

func TestOfferCacheKeysAreIndependent(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	_, err := cache.Upsert(ctx, cachedSwap("own-1", "0"))
	require.NoError(t, err)

	// A different swap id starts fresh.
	previous, err := cache.Upsert(ctx, cachedSwap("own-2", "0"))
	require.NoError(t, err)
	require.Nil(t, previous)
}
