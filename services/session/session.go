package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mealdesk/apperrors"
	sessionRepo "mealdesk/database/repository/session"
	"mealdesk/models"
	"mealdesk/services/store"
	"mealdesk/utils"

	"go.uber.org/zap"
)

// SessionService manages the session lifecycle.
type SessionService interface {
	// Hydrate restores the persisted session at process start and returns what was
	// persisted (nil when nothing was).
	Hydrate(ctx context.Context) (*models.PersistedSession, error)
	// Login stores a backend-issued auth token.
	Login(ctx context.Context, token string) error
	// Logout destroys the session.
	Logout(ctx context.Context) error
	// CompleteOnboarding marks the onboarding flow as done on this device.
	CompleteOnboarding(ctx context.Context) error
	// LoadMealPreferences reads the business meal preferences into the session.
	LoadMealPreferences(ctx context.Context) error
	// SaveMealPreferences stores new business meal preferences.
	SaveMealPreferences(ctx context.Context, prefs models.MealPreferences) error
	// SaveCustomerTotals persists the customer count of the last page-1 fetch.
	SaveCustomerTotals(ctx context.Context, total int, refreshedAt time.Time) error
}

// DefaultSessionService is the production implementation.
type DefaultSessionService struct {
	Repo   sessionRepo.SessionRepository
	Store  *store.Store
	Writer *store.SessionWriter
	Logger *zap.Logger
	Now    func() time.Time

	persistMu sync.Mutex
}

func (s *DefaultSessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultSessionService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// Hydrate loads the persisted session. Invalid or expired tokens are discarded.
func (s *DefaultSessionService) Hydrate(ctx context.Context) (*models.PersistedSession, error) {
	persisted, err := s.Repo.Load(ctx)
	if errors.Is(err, sessionRepo.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate session: %w", err)
	}

	restored := models.Session{HasCompletedOnboarding: persisted.HasCompletedOnboarding}
	if persisted.AuthToken != "" {
		claims, err := utils.ParseTokenClaims(persisted.AuthToken)
		switch {
		case err != nil:
			s.logger().Warn("discarding unreadable persisted token", zap.Error(err))
		case claims.Expired(s.now()):
			s.logger().Info("discarding expired persisted token", zap.Time("expiredAt", claims.ExpiresAt))
		default:
			restored.AuthToken = persisted.AuthToken
			restored.ProviderID = claims.ProviderID
		}
		if restored.AuthToken == "" {
			persisted.AuthToken = ""
			persisted.MealPreferences = nil
			persisted.CustomerTotal = 0
			persisted.CustomersRefreshedAt = time.Time{}
			if err := s.persist(ctx, func(p *models.PersistedSession) { *p = *persisted }); err != nil {
				s.logger().Warn("failed to rewrite persisted session", zap.Error(err))
			}
		}
	}
	if restored.AuthToken != "" && persisted.MealPreferences != nil {
		restored.MealPreferences = models.MealPreferenceState{
			Status: models.PreferencesLoaded,
			Prefs:  *persisted.MealPreferences,
		}
	}

	s.Writer.Dispatch(store.SessionHydrated{Session: restored})
	s.logger().Info("session hydrated",
		zap.Bool("authenticated", restored.Authenticated()),
		zap.Bool("onboarded", restored.HasCompletedOnboarding),
	)
	return persisted, nil
}

func (s *DefaultSessionService) Login(ctx context.Context, token string) error {
	claims, err := utils.ParseTokenClaims(token)
	if err != nil {
		return apperrors.NewValidationError("login", map[string]string{"token": "is not a valid auth token"})
	}
	if claims.Expired(s.now()) {
		return apperrors.NewValidationError("login", map[string]string{"token": "has expired"})
	}

	previous := s.Store.Session().ProviderID
	s.Writer.Dispatch(store.SignedIn{Token: token, ProviderID: claims.ProviderID})
	err = s.persist(ctx, func(p *models.PersistedSession) {
		p.AuthToken = token
		if previous != claims.ProviderID {
			p.MealPreferences = nil
			p.CustomerTotal = 0
			p.CustomersRefreshedAt = time.Time{}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to persist login: %w", err)
	}
	s.logger().Info("signed in", zap.String("providerId", claims.ProviderID))
	return nil
}

func (s *DefaultSessionService) Logout(ctx context.Context) error {
	s.Writer.Dispatch(store.SignedOut{})
	err := s.persist(ctx, func(p *models.PersistedSession) {
		*p = models.PersistedSession{HasCompletedOnboarding: p.HasCompletedOnboarding}
	})
	if err != nil {
		return fmt.Errorf("failed to persist logout: %w", err)
	}
	s.logger().Info("signed out")
	return nil
}

func (s *DefaultSessionService) CompleteOnboarding(ctx context.Context) error {
	s.Writer.Dispatch(store.OnboardingCompleted{})
	return s.persist(ctx, func(p *models.PersistedSession) {
		p.HasCompletedOnboarding = true
	})
}

// LoadMealPreferences moves the preference state through Loading to Loaded. A
// provider that never configured preferences loads with both meals disabled.
func (s *DefaultSessionService) LoadMealPreferences(ctx context.Context) error {
	current := s.Store.Session()
	if !current.Authenticated() || current.MealPreferences.Status == models.PreferencesLoading {
		return nil
	}
	s.Writer.Dispatch(store.PreferencesLoading{})

	persisted, err := s.Repo.Load(ctx)
	if err != nil && !errors.Is(err, sessionRepo.ErrNoSession) {
		s.Writer.Dispatch(store.PreferencesUnavailable{})
		return fmt.Errorf("failed to load meal preferences: %w", err)
	}

	var prefs models.MealPreferences
	if persisted != nil && persisted.MealPreferences != nil {
		prefs = *persisted.MealPreferences
	}
	s.Writer.Dispatch(store.PreferencesLoaded{Prefs: prefs})
	return nil
}

func (s *DefaultSessionService) SaveMealPreferences(ctx context.Context, prefs models.MealPreferences) error {
	if !s.Store.Session().Authenticated() {
		return apperrors.NewValidationError("save_meal_preferences", map[string]string{"session": "sign in first"})
	}
	if err := s.persist(ctx, func(p *models.PersistedSession) {
		p.MealPreferences = &prefs
	}); err != nil {
		return fmt.Errorf("failed to save meal preferences: %w", err)
	}
	s.Writer.Dispatch(store.PreferencesLoaded{Prefs: prefs})
	return nil
}

func (s *DefaultSessionService) SaveCustomerTotals(ctx context.Context, total int, refreshedAt time.Time) error {
	if !s.Store.Session().Authenticated() {
		return nil
	}
	return s.persist(ctx, func(p *models.PersistedSession) {
		p.CustomerTotal = total
		p.CustomersRefreshedAt = refreshedAt
	})
}

// persist applies mutate to the stored session under a lock.
func (s *DefaultSessionService) persist(ctx context.Context, mutate func(p *models.PersistedSession)) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	current, err := s.Repo.Load(ctx)
	if errors.Is(err, sessionRepo.ErrNoSession) {
		current = &models.PersistedSession{}
	} else if err != nil {
		return err
	}
	mutate(current)
	return s.Repo.Save(ctx, *current)
}
