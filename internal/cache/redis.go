package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
)

const statsKey = keyPrefix + "stats"

type redisCache struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(cfg config.RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisCache{client: client}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		c.client.HIncrBy(ctx, statsKey, "misses", 1)
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	c.client.HIncrBy(ctx, statsKey, "hits", 1)
	return val, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, value, ttl)
	pipe.HIncrBy(ctx, statsKey, "writes", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
