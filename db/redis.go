package db

import (
	"context"
	"fmt"
	"time"

	"melodex/config"
	"melodex/logger"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes the Redis connection used by the browse cache.
// Returns nil when no Redis host is configured; the cache degrades to a
// pass-through in that case.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisHost == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", logger.String("addr", client.Options().Addr))
	return client, nil
}
