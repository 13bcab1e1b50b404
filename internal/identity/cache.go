package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores resolved principals as JSON with a TTL.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache creates a principal cache. A non-positive ttl defaults to five minutes.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("identity: redis client required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) key(email string) string {
	return fmt.Sprintf("identity:principal:%s", email)
}

func (c *RedisCache) Get(ctx context.Context, email string) (*Principal, bool, error) {
	data, err := c.redis.Get(ctx, c.key(email)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("identity: cache get: %w", err)
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("identity: cache decode: %w", err)
	}
	return &p, true, nil
}

func (c *RedisCache) Set(ctx context.Context, p *Principal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("identity: cache encode: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(normalizeEmail(p.Email)), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("identity: cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, email string) error {
	if err := c.redis.Del(ctx, c.key(email)).Err(); err != nil {
		return fmt.Errorf("identity: cache delete: %w", err)
	}
	return nil
}
