package db

import (
	"context"
	"time"

	"github.com/jmehdipour/eventlog/internal/config"
	"github.com/redis/go-redis/v9"
)

const defaultRedisDialTimeout = 5 * time.Second

// OpenRedis connects to the rate-limit store. A blank address means the
// limiter runs without Redis, so it returns (nil, nil).
func OpenRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultRedisDialTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
