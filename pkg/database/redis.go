package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"tasksync/configs"
	"tasksync/pkg/logger"
)

// ConnectRedis membuat client Redis dan memastikan server bisa di-ping.
func ConnectRedis(ctx context.Context, cfg configs.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: "",
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorLogger.Error("Redis connection error", zap.Error(err))
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr(), err)
	}
	return client, nil
}
