package sessionRepo

import (
	"context"
	"sync"
	"time"

	"mealdesk/models"
)

// MemorySessionRepo keeps the session in process memory. Used when no redis is
// configured and in tests.
type MemorySessionRepo struct {
	mu      sync.Mutex
	session *models.PersistedSession
}

func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{}
}

func (r *MemorySessionRepo) Load(ctx context.Context) (*models.PersistedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, ErrNoSession
	}
	out := *r.session
	if r.session.MealPreferences != nil {
		prefs := *r.session.MealPreferences
		out.MealPreferences = &prefs
	}
	return &out, nil
}

func (r *MemorySessionRepo) Save(ctx context.Context, session models.PersistedSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.SavedAt = time.Now()
	if session.MealPreferences != nil {
		prefs := *session.MealPreferences
		session.MealPreferences = &prefs
	}
	r.session = &session
	return nil
}

func (r *MemorySessionRepo) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = nil
	return nil
}
