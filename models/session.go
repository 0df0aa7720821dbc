package models

import "time"

// PreferenceStatus is the load state of the business meal preferences.
type PreferenceStatus int

const (
	PreferencesUnloaded PreferenceStatus = iota
	PreferencesLoading
	PreferencesLoaded
)

func (s PreferenceStatus) String() string {
	switch s {
	case PreferencesLoading:
		return "loading"
	case PreferencesLoaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// MealPreferences are the locally configured business preferences.
type MealPreferences struct {
	LunchEnabled  bool `json:"lunchEnabled"`
	DinnerEnabled bool `json:"dinnerEnabled"`
}

// AnyEnabled reports whether at least one meal is offered.
func (p MealPreferences) AnyEnabled() bool {
	return p.LunchEnabled || p.DinnerEnabled
}

type MealPreferenceState struct {
	Status PreferenceStatus `json:"status"`
	Prefs  MealPreferences  `json:"prefs"`
}

// TrialStatus as reported by the backend.
type TrialStatus struct {
	IsActive             bool `json:"isActive"`
	RequiresSubscription bool `json:"requiresSubscription"`
	DaysLeft             int  `json:"daysLeft"`
}

// Subscription states.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionPending   = "pending"
	SubscriptionInactive  = "inactive"
)

// SubscriptionStatus is the provider's paid subscription record.
type SubscriptionStatus struct {
	ID        string    `json:"_id,omitempty"`
	Status    string    `json:"status"`
	PlanName  string    `json:"planName,omitempty"`
	StartDate time.Time `json:"startDate,omitempty"`
	EndDate   time.Time `json:"endDate,omitempty"`
}

func (s *SubscriptionStatus) Active() bool {
	return s != nil && s.Status == SubscriptionActive
}

// Session is the process-wide entitlement session.
type Session struct {
	AuthToken              string              `json:"-"`
	ProviderID             string              `json:"providerId,omitempty"`
	HasCompletedOnboarding bool                `json:"hasCompletedOnboarding"`
	MealPreferences        MealPreferenceState `json:"mealPreferences"`
	Trial                  *TrialStatus        `json:"trialStatus,omitempty"`
	Subscription           *SubscriptionStatus `json:"subscriptionStatus,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.AuthToken != ""
}

// StatusResolved reports whether trial or subscription status has been fetched.
func (s Session) StatusResolved() bool {
	return s.Trial != nil || s.Subscription != nil
}

// RequiresSubscription is true only once the trial was fetched, the trial is
// exhausted and no active subscription exists.
func (s Session) RequiresSubscription() bool {
	if s.Trial == nil {
		return false
	}
	if s.Trial.IsActive || s.Subscription.Active() {
		return false
	}
	return s.Trial.RequiresSubscription
}

// HasAccess reports whether the provider may use entitlement-gated screens.
func (s Session) HasAccess() bool {
	return s.Subscription.Active() || (s.Trial != nil && s.Trial.IsActive)
}

// PersistedSession is the slice of session state kept between process runs.
type PersistedSession struct {
	AuthToken              string           `json:"authToken,omitempty"`
	HasCompletedOnboarding bool             `json:"hasCompletedOnboarding"`
	MealPreferences        *MealPreferences `json:"mealPreferences,omitempty"`
	CustomerTotal          int              `json:"customerTotal,omitempty"`
	CustomersRefreshedAt   time.Time        `json:"customersRefreshedAt,omitempty"`
	SavedAt                time.Time        `json:"savedAt"`
}
