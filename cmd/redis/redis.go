package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/muhammadheryan/catalog-api/cmd/config"
	"github.com/redis/go-redis/v9"
)

// New connects to Redis and verifies connectivity. It returns a nil client
// when Redis is disabled; callers treat that as "no cache, no denylist".
func New(cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", addr, err)
	}

	return c, nil
}
