// File: database/repository/session/redis.go
package sessionRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mealdesk/models"

	"github.com/go-redis/redis/v8"
)

const SessionKeyPrefix = "mealdesk:session:"

// RedisSessionRepo keeps the session of one device as a JSON blob.
type RedisSessionRepo struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSessionRepo creates a repository scoped to deviceID. A zero ttl keeps the
// session until it is deleted.
func NewRedisSessionRepo(client *redis.Client, deviceID string, ttl time.Duration) SessionRepository {
	return &RedisSessionRepo{client: client, key: SessionKeyPrefix + deviceID, ttl: ttl}
}

func (r *RedisSessionRepo) Load(ctx context.Context) (*models.PersistedSession, error) {
	data, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var session models.PersistedSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionRepo) Save(ctx context.Context, session models.PersistedSession) error {
	session.SavedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepo) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
