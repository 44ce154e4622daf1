package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"galaswapbot/internal/domain"
)

const offerKeyPrefix = "own_swap:"

// OfferCache implements domain.OfferCache on Redis. Each of the agent's own
// offers is stored under its swap id; the previous value returned by Upsert
// is what lets the orchestrator spot usesSpent growing between ticks.
type OfferCache struct {
	rdb *redis.Client
}

// NewOfferCache creates an OfferCache on the given client.
func NewOfferCache(client *Client) *OfferCache {
	return &OfferCache{rdb: client.Underlying()}
}

// Upsert stores the swap keyed by its id and returns the previously stored
// version, or nil when the swap was not cached before.
func (c *OfferCache) Upsert(ctx context.Context, swap domain.Swap) (*domain.Swap, error) {
	data, err := json.Marshal(swap)
	if err != nil {
		return nil, fmt.Errorf("redis: marshal swap %s: %w", swap.SwapRequestID, err)
	}

	prev, err := c.rdb.GetSet(ctx, offerKeyPrefix+swap.SwapRequestID, data).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: upsert swap %s: %w", swap.SwapRequestID, err)
	}

	var previous domain.Swap
	if err := json.Unmarshal([]byte(prev), &previous); err != nil {
		return nil, fmt.Errorf("redis: decode cached swap %s: %w", swap.SwapRequestID, err)
	}
	return &previous, nil
}
