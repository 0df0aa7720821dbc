package store

import "mealdesk/models"

// SessionAction is one of the closed set of session mutations.
type SessionAction interface {
	reduceSession(s *models.Session) bool
}

// SessionHydrated replaces the session with a restored one.
type SessionHydrated struct {
	Session models.Session
}

func (a SessionHydrated) reduceSession(s *models.Session) bool {
	*s = copySession(a.Session)
	return true
}

// SignedIn stores a fresh auth token. Entitlement status from a previous
// provider never carries over.
type SignedIn struct {
	Token      string
	ProviderID string
}

func (a SignedIn) reduceSession(s *models.Session) bool {
	if s.AuthToken == a.Token && s.ProviderID == a.ProviderID {
		return false
	}
	if s.ProviderID != a.ProviderID {
		s.Trial = nil
		s.Subscription = nil
		s.MealPreferences = models.MealPreferenceState{}
	}
	s.AuthToken = a.Token
	s.ProviderID = a.ProviderID
	return true
}

// SignedOut destroys the session. Onboarding completion is a property of the
// device and survives.
type SignedOut struct{}

func (SignedOut) reduceSession(s *models.Session) bool {
	onboarded := s.HasCompletedOnboarding
	*s = models.Session{HasCompletedOnboarding: onboarded}
	return true
}

type OnboardingCompleted struct{}

func (OnboardingCompleted) reduceSession(s *models.Session) bool {
	if s.HasCompletedOnboarding {
		return false
	}
	s.HasCompletedOnboarding = true
	return true
}

type PreferencesLoading struct{}

func (PreferencesLoading) reduceSession(s *models.Session) bool {
	if s.MealPreferences.Status == models.PreferencesLoading {
		return false
	}
	s.MealPreferences.Status = models.PreferencesLoading
	return true
}

type PreferencesLoaded struct {
	Prefs models.MealPreferences
}

func (a PreferencesLoaded) reduceSession(s *models.Session) bool {
	next := models.MealPreferenceState{Status: models.PreferencesLoaded, Prefs: a.Prefs}
	if s.MealPreferences == next {
		return false
	}
	s.MealPreferences = next
	return true
}

// PreferencesUnavailable drops back to Unloaded after a failed load.
type PreferencesUnavailable struct{}

func (PreferencesUnavailable) reduceSession(s *models.Session) bool {
	if s.MealPreferences.Status == models.PreferencesUnloaded {
		return false
	}
	s.MealPreferences = models.MealPreferenceState{}
	return true
}

// EntitlementResolved records a successful trial/subscription fetch for ProviderID.
// Results for another provider (the user switched accounts meanwhile) are ignored.
type EntitlementResolved struct {
	ProviderID   string
	Trial        *models.TrialStatus
	Subscription *models.SubscriptionStatus
}

func (a EntitlementResolved) reduceSession(s *models.Session) bool {
	if s.AuthToken == "" || s.ProviderID != a.ProviderID {
		return false
	}
	var trial *models.TrialStatus
	if a.Trial != nil {
		t := *a.Trial
		trial = &t
	}
	var sub *models.SubscriptionStatus
	if a.Subscription != nil {
		v := *a.Subscription
		sub = &v
	}
	if equalTrial(s.Trial, trial) && equalSub(s.Subscription, sub) {
		return false
	}
	s.Trial = trial
	s.Subscription = sub
	return true
}

func equalTrial(a, b *models.TrialStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalSub(a, b *models.SubscriptionStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Status == b.Status && a.ID == b.ID && a.PlanName == b.PlanName &&
		a.StartDate.Equal(b.StartDate) && a.EndDate.Equal(b.EndDate)
}
