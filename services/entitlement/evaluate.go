// Package entitlement decides which screen a provider may see and keeps the
// trial/subscription status fresh enough to decide it.
package entitlement

import "mealdesk/models"

// SyncState is what the gate knows about the freshness of the entitlement status.
type SyncState struct {
	// Unconfirmed is set once the fail-closed window passed without a successful fetch.
	Unconfirmed bool
}

// screens that stay reachable when the trial is exhausted
var subscriptionExempt = map[models.Screen]bool{
	models.ScreenSubscriptionPurchase: true,
	models.ScreenLogin:                true,
	models.ScreenPreferenceSetup:      true,
}

// Evaluate decides screen for session s. The first matching rule wins; prev is
// returned unchanged while meal preferences are loading.
func Evaluate(screen models.Screen, s models.Session, prev models.Decision, sync SyncState) models.Decision {
	if !s.Authenticated() {
		if screen.IsPublic() {
			return models.Allow()
		}
		if !s.HasCompletedOnboarding {
			return models.RedirectTo(models.ScreenWelcome)
		}
		return models.RedirectTo(models.ScreenLogin)
	}

	switch s.MealPreferences.Status {
	case models.PreferencesLoading:
		return prev
	case models.PreferencesLoaded:
		if !s.MealPreferences.Prefs.AnyEnabled() && screen.RequiresPreferences() {
			return models.RedirectWithReturn(models.ScreenPreferenceSetup, screen)
		}
	}

	if screen.IsGated() && sync.Unconfirmed {
		return models.RedirectTo(models.ScreenSubscriptionPurchase)
	}

	if !s.StatusResolved() {
		if screen.IsGated() {
			return models.Hold()
		}
		return models.Allow()
	}

	if s.RequiresSubscription() && !subscriptionExempt[screen] {
		return models.RedirectTo(models.ScreenSubscriptionPurchase)
	}

	if s.HasAccess() && screen.IsAuthOnly() {
		return models.RedirectTo(models.ScreenDashboard)
	}

	return models.Allow()
}
