package sessionRepo

import (
	"context"
	"os"
	"testing"
	"time"

	"mealdesk/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() models.PersistedSession {
	return models.PersistedSession{
		AuthToken:              "tok",
		HasCompletedOnboarding: true,
		MealPreferences:        &models.MealPreferences{LunchEnabled: true},
		CustomerTotal:          15,
	}
}

func exerciseRepo(t *testing.T, repo SessionRepository) {
	ctx := context.Background()

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	saved := sample()
	require.NoError(t, repo.Save(ctx, saved))
	saved.MealPreferences.LunchEnabled = false

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AuthToken)
	assert.True(t, got.HasCompletedOnboarding)
	assert.Equal(t, 15, got.CustomerTotal)
	require.NotNil(t, got.MealPreferences)
	assert.True(t, got.MealPreferences.LunchEnabled, "saved copy is isolated from the caller")
	assert.False(t, got.SavedAt.IsZero())

	require.NoError(t, repo.Delete(ctx))
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemorySessionRepo(t *testing.T) {
	exerciseRepo(t, NewMemorySessionRepo())
}

func TestRedisSessionRepo(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	repo := NewRedisSessionRepo(client, "test-"+t.Name(), time.Minute)
	t.Cleanup(func() { _ = repo.Delete(context.Background()) })
	exerciseRepo(t, repo)
}
