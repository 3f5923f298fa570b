package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"service-dispatch/internal/logx"
)

const cacheKeyPrefix = "profile:"

// redisClient is the subset of *redis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedGateway serves profiles from Redis and falls through to next on a miss.
// Cache failures are logged and never fail a lookup.
type CachedGateway struct {
	next   gateway
	client redisClient
	ttl    time.Duration
	logger logx.Logger
}

// NewCachedGateway wraps next with a Redis read-through cache.
func NewCachedGateway(next gateway, client redisClient, ttl time.Duration, logger logx.Logger) *CachedGateway {
	if logger == nil {
		logger = logx.Nop()
	}
	return &CachedGateway{next: next, client: client, ttl: ttl, logger: logger}
}

// GetProfile implements the gateway.
func (c *CachedGateway) GetProfile(ctx context.Context, id string) (*Profile, error) {
	key := cacheKeyPrefix + id
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Profile
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		c.logger.Warn("profile cache entry corrupt", logx.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("profile cache read failed", logx.String("key", key), logx.Err(err))
	}

	p, err := c.next.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("profile cache write failed", logx.String("key", key), logx.Err(err))
		}
	}
	return p, nil
}

// NewRedisClient creates a Redis client and checks it with PING.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
