package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertCache suppresses duplicate alerts for the cooldown window so an
// unchanged opportunity is not re-sent every poll.
type AlertCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
	Close() error
}

type redisAlertCache struct {
	client   *redis.Client
	cooldown time.Duration
	prefix   string
}

// NewRedisAlertCache builds a cooldown cache keyed by the alert digest.
func NewRedisAlertCache(addr, password string, db int, cooldown time.Duration, prefix string) (AlertCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	if prefix == "" {
		prefix = "alert_sent"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisAlertCache{client: client, cooldown: cooldown, prefix: prefix}, nil
}

func (c *redisAlertCache) key(digest string) string {
	return fmt.Sprintf("%s:%s", c.prefix, digest)
}

func (c *redisAlertCache) Seen(ctx context.Context, digest string) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, c.key(digest)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisAlertCache) Mark(ctx context.Context, digest string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, c.key(digest), time.Now().UTC().Format(time.RFC3339), c.cooldown).Err()
}

func (c *redisAlertCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
