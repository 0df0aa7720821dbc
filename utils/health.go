package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// HealthStatus represents current status of the session store.
type HealthStatus struct {
	SessionStore   string    `json:"sessionStore"`
	SessionStoreUp bool      `json:"sessionStoreUp"`
	CheckedAt      time.Time `json:"checkedAt"`
}

var (
	currentHealth = HealthStatus{SessionStore: "memory", SessionStoreUp: true}
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

func setHealthStatus(h HealthStatus) {
	mu.Lock()
	currentHealth = h
	mu.Unlock()
}

// StartHealthMonitor pings the session cache every interval until ctx ends.
func StartHealthMonitor(ctx context.Context, client *redis.Client, interval time.Duration) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := client.Ping(pingCtx).Err()
		if err != nil && ctx.Err() == nil {
			GetLogger().Warn("session cache connection lost", zap.Error(err))
		}
		setHealthStatus(HealthStatus{SessionStore: "redis", SessionStoreUp: err == nil, CheckedAt: time.Now()})
	}
	check()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}
