package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens the Redis client used for attempt limiting and session
// revocation. It returns nil, nil when REDIS_URL is unset.
func ConnectRedis(cfg *Config) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		log.Println("⚠️ REDIS_URL not set: attempt limiting and logout revocation disabled")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Printf("✅ Redis connected [%s]", opts.Addr)
	return client, nil
}
