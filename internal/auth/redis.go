package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/logger"
)

// ConnectRedis opens the Redis client shared by the session cache and the lock
// service, and verifies it with a ping and a test write.
func ConnectRedis(cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error("AUTH", fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Addr, err))
		_ = client.Close()
		return nil, err
	}

	testKey := SessionKeyPrefix + "healthcheck"
	if err := client.Set(ctx, testKey, "ok", 5*time.Second).Err(); err != nil {
		log.Error("AUTH", fmt.Sprintf("Failed to write test value to Redis: %v", err))
		_ = client.Close()
		return nil, err
	}

	log.Info("AUTH", fmt.Sprintf("Connected to Redis at %s for sessions and locks", cfg.Addr))
	return client, nil
}
