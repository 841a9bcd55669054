// Package redis caches domain liveness results so repeated list/status
// requests do not re-resolve every monitored domain.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefixLiveness = "subwatch:liveness:"

// DefaultLivenessTTL bounds how stale a cached liveness verdict may be.
const DefaultLivenessTTL = 5 * time.Minute

// Cache stores liveness verdicts in Redis with a TTL.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func livenessKey(domainName string) string {
	return keyPrefixLiveness + domainName
}

// SetLiveness records a liveness verdict for a domain.
func (c *Cache) SetLiveness(ctx context.Context, domainName string, alive bool, ttl time.Duration) error {
	val := "0"
	if alive {
		val = "1"
	}
	if err := c.client.Set(ctx, livenessKey(domainName), val, ttl).Err(); err != nil {
		return fmt.Errorf("cache liveness for %s: %w", domainName, err)
	}
	return nil
}

// GetLiveness returns a cached verdict; found is false on a cache miss.
func (c *Cache) GetLiveness(ctx context.Context, domainName string) (alive, found bool, err error) {
	val, err := c.client.Get(ctx, livenessKey(domainName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("get cached liveness for %s: %w", domainName, err)
	}
	return val == "1", true, nil
}
