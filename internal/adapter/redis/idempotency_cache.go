package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyCache is a read-through cache in front of the durable idempotency
// ledger. It only ever holds finalized outcomes (an order ID), never pending
// state, so a cache miss or an unavailable Redis degrades to the ledger path
// without changing semantics.
type IdempotencyCache interface {
	GetOrderID(ctx context.Context, buyerID, key string) (string, error)
	SetOrderID(ctx context.Context, buyerID, key, orderID string) error
}

// ErrCacheMiss is returned when no outcome is cached for the key.
var ErrCacheMiss = errors.New("idempotency cache miss")

type idempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyCache(client *redis.Client, ttl time.Duration) IdempotencyCache {
	return &idempotencyCache{client: client, ttl: ttl}
}

func cacheKey(buyerID, key string) string {
	return fmt.Sprintf("idem:order:%s:%s", buyerID, key)
}

func (c *idempotencyCache) GetOrderID(ctx context.Context, buyerID, key string) (string, error) {
	val, err := c.client.Get(ctx, cacheKey(buyerID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to read idempotency cache: %w", err)
	}
	return val, nil
}

func (c *idempotencyCache) SetOrderID(ctx context.Context, buyerID, key, orderID string) error {
	if err := c.client.Set(ctx, cacheKey(buyerID, key), orderID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write idempotency cache: %w", err)
	}
	return nil
}
