package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsVersionKey = "stats:version"

// StatsCache stores serialized report results in Redis. Keys are namespaced
// by a version counter so Invalidate drops every entry with one INCR. A nil
// client turns every call into a miss.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache builds a cache; client may be nil.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// StatsSlot is a report key pinned to the cache version seen by Get. A value
// written through a slot taken before Invalidate lands under the retired
// version and is never read back.
type StatsSlot struct {
	key string
}

func (c *StatsCache) versionedKey(ctx context.Context, key string) (string, error) {
	version, err := c.client.Get(ctx, statsVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("stats:v%d:%s", version, key), nil
}

// Get decodes the cached value into dest and reports whether it was present.
// The returned slot is where a freshly loaded value for key belongs.
func (c *StatsCache) Get(ctx context.Context, key string, dest any) (StatsSlot, bool, error) {
	if !c.enabled() {
		return StatsSlot{}, false, nil
	}
	full, err := c.versionedKey(ctx, key)
	if err != nil {
		return StatsSlot{}, false, err
	}
	slot := StatsSlot{key: full}
	raw, err := c.client.Get(ctx, full).Bytes()
	if errors.Is(err, redis.Nil) {
		return slot, false, nil
	}
	if err != nil {
		return slot, false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return slot, false, err
	}
	return slot, true, nil
}

// Set stores value in slot for the configured TTL. An empty slot is a no-op.
func (c *StatsCache) Set(ctx context.Context, slot StatsSlot, value any) error {
	if !c.enabled() || slot.key == "" {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, slot.key, raw, c.ttl).Err()
}

// Invalidate retires every cached entry.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, statsVersionKey).Err()
}
