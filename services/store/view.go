package store

import (
	"time"

	"mealdesk/apperrors"
	"mealdesk/models"
)

// CustomerListView is what the view layer reads for the customer list.
type CustomerListView struct {
	Customers       []models.Customer `json:"customers"`
	Loading         bool              `json:"loading"`
	Refreshing      bool              `json:"refreshing"`
	LoadingMore     bool              `json:"loadingMore"`
	HasMore         bool              `json:"hasMore"`
	TotalItems      int               `json:"totalItems"`
	PendingToggles  map[string]bool   `json:"pendingToggles"`
	Error           string            `json:"error,omitempty"`
	Phase           ListPhase         `json:"phase"`
	LastRefreshedAt *time.Time        `json:"lastRefreshedAt,omitempty"`
}

// SessionView is the session as exposed to the view layer; the token stays inside.
type SessionView struct {
	Authenticated          bool                       `json:"authenticated"`
	ProviderID             string                     `json:"providerId,omitempty"`
	HasCompletedOnboarding bool                       `json:"hasCompletedOnboarding"`
	MealPreferences        string                     `json:"mealPreferenceStatus"`
	Preferences            *models.MealPreferences    `json:"preferences,omitempty"`
	Trial                  *models.TrialStatus        `json:"trialStatus,omitempty"`
	Subscription           *models.SubscriptionStatus `json:"subscriptionStatus,omitempty"`
	RequiresSubscription   bool                       `json:"requiresSubscription"`
	HasAccess              bool                       `json:"hasAccess"`
}

// Snapshot is a consistent read of both slices.
type Snapshot struct {
	Session   SessionView      `json:"session"`
	Customers CustomerListView `json:"customers"`
}

// Snapshot reads both slices under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	session := copySession(s.session)
	customers := s.customers.clone()
	s.mu.RUnlock()

	return Snapshot{
		Session:   NewSessionView(session),
		Customers: NewCustomerListView(customers),
	}
}

func NewSessionView(s models.Session) SessionView {
	v := SessionView{
		Authenticated:          s.Authenticated(),
		ProviderID:             s.ProviderID,
		HasCompletedOnboarding: s.HasCompletedOnboarding,
		MealPreferences:        s.MealPreferences.Status.String(),
		Trial:                  s.Trial,
		Subscription:           s.Subscription,
		RequiresSubscription:   s.RequiresSubscription(),
		HasAccess:              s.HasAccess(),
	}
	if s.MealPreferences.Status == models.PreferencesLoaded {
		prefs := s.MealPreferences.Prefs
		v.Preferences = &prefs
	}
	return v
}

func NewCustomerListView(s CustomerListState) CustomerListView {
	customers := make([]models.Customer, 0, len(s.Entries))
	for _, e := range s.Entries {
		customers = append(customers, e.View())
	}
	v := CustomerListView{
		Customers:      customers,
		Loading:        s.Loading,
		Refreshing:     s.Refreshing,
		LoadingMore:    s.LoadingMore,
		HasMore:        s.HasMore,
		TotalItems:     s.TotalItems,
		PendingToggles: s.PendingToggles(),
		Phase:          s.Phase(),
	}
	if s.Err != nil {
		v.Error = apperrors.Message(s.Err)
	}
	if !s.LastRefreshedAt.IsZero() {
		at := s.LastRefreshedAt
		v.LastRefreshedAt = &at
	}
	return v
}
