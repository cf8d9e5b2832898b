package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Jimmeey2323/referrals/internal/config"
)

// ConnectRedis dials the optional redis used for the single-flight run lock.
// Callers must only invoke it when cfg.RedisAddr is set.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}
