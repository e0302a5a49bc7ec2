package cacher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCacher is a Redis-based implementation of the Cacher interface.
// It provides thread-safe caching with distributed locking to prevent
// cache stampede when multiple server processes try to fetch the same
// missing cache entry simultaneously (e.g. a clan profile after its
// cache entry expires).
type redisCacher[T any] struct {
	client *redis.Client
}

// releaseLockScript deletes the lock key only if the caller still owns it.
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// NewRedisCacher creates a new Redis-based cacher instance.
// It takes a Redis client and returns a Cacher implementation that
// uses Redis for storage and distributed locking.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	cacher := NewRedisCacher[ClanProfile](client)
func NewRedisCacher[T any](client *redis.Client) Cacher[T] {
	return &redisCacher[T]{
		client: client,
	}
}

// GetOrFetch retrieves a value from the cache, or fetches it using the provided
// function if it's not cached. On a miss it acquires a distributed lock; the
// lock winner fetches and populates the cache while losers poll until the
// value appears or the lock disappears.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - key: The cache key to retrieve or set
//   - ttl: Time-to-live duration for the cached value
//   - fetchFn: Function to fetch the value if not in cache
//
// Returns:
//   - The cached or fetched value of type T
//   - An error if retrieval or fetching fails
func (c *redisCacher[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error) {
	var zero T

	if val, err := c.get(ctx, key); err == nil {
		return val, nil
	} else if !errors.Is(err, redis.Nil) {
		return zero, err
	}

	lockKey := fmt.Sprintf("%s:lock", key)
	lockTTL := 30 * time.Second
	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())

	acquired, err := c.client.SetNX(ctx, lockKey, lockValue, lockTTL).Result()
	if err != nil {
		return zero, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !acquired {
		// Another process is fetching; wait for its result
		return c.waitForCache(ctx, key, lockKey, lockTTL)
	}

	// Release with the ownership check even if the parent context is gone
	defer func() {
		releaseLockScript.Run(context.Background(), c.client, []string{lockKey}, lockValue)
	}()

	result, err := fetchFn(ctx)
	if err != nil {
		return zero, fmt.Errorf("fetch function failed: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(context.Background(), key, data, ttl).Err(); err != nil {
		return zero, fmt.Errorf("failed to cache result: %w", err)
	}

	return result, nil
}

// get reads and unmarshals a cached value. It returns redis.Nil (wrapped)
// when the key is absent.
func (c *redisCacher[T]) get(ctx context.Context, key string) (T, error) {
	var zero T

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, err
		}
		return zero, fmt.Errorf("redis get error: %w", err)
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return result, nil
}

// waitForCache polls with exponential backoff until the lock winner populates
// the cache, the lock disappears, the timeout passes, or ctx is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation control
//   - key: The cache key to wait for
//   - lockKey: The lock key to monitor
//   - timeout: Maximum duration to wait for the cache value
//
// Returns:
//   - The cached value of type T if found
//   - An error if timeout occurs, context is cancelled, or the fetch failed
func (c *redisCacher[T]) waitForCache(
	ctx context.Context,
	key string,
	lockKey string,
	timeout time.Duration,
) (T, error) {
	var zero T

	backoff := 10 * time.Millisecond
	maxBackoff := 500 * time.Millisecond
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			return zero, errors.New("timeout waiting for cache")
		}

		val, err := c.get(ctx, key)
		if err == nil {
			return val, nil
		} else if !errors.Is(err, redis.Nil) {
			return zero, err
		}

		exists, err := c.client.Exists(ctx, lockKey).Result()
		if err != nil {
			return zero, fmt.Errorf("failed to check lock existence: %w", err)
		}

		if exists == 0 {
			// Lock gone without a cached value; the winner's fetch failed
			if val, err := c.get(ctx, key); err == nil {
				return val, nil
			}
			return zero, errors.New("fetch operation failed or cache not populated")
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Delete removes a key from the cache.
func (c *redisCacher[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Clear removes all items from the cache.
func (c *redisCacher[T]) Clear(ctx context.Context) error {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// ItemCount returns the number of items in the cache.
func (c *redisCacher[T]) ItemCount(ctx context.Context) (int, error) {
	count, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get cache size: %w", err)
	}
	return int(count), nil
}
