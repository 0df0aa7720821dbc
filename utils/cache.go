// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"time"

	"mealdesk/config"

	"github.com/go-redis/redis/v8"
)

// SessionCacheClient is the redis client holding the persisted session.
var SessionCacheClient *redis.Client

// InitSessionCache initializes the redis client used for session persistence.
func InitSessionCache() error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis (session): %w", err)
	}
	SessionCacheClient = client
	return nil
}

// GetSessionCacheClient returns the session redis client, connecting on first use.
func GetSessionCacheClient() (*redis.Client, error) {
	if SessionCacheClient == nil {
		if err := InitSessionCache(); err != nil {
			return nil, err
		}
	}
	return SessionCacheClient, nil
}
