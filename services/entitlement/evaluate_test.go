package entitlement

import (
	"testing"

	"mealdesk/models"

	"github.com/stretchr/testify/assert"
)

var gatedScreens = []models.Screen{
	models.ScreenDashboard, models.ScreenCustomers, models.ScreenCustomerForm,
	models.ScreenMenus, models.ScreenDailyOrders, models.ScreenBilling, models.ScreenReports,
}

func signedIn() models.Session {
	return models.Session{
		AuthToken:              "tok",
		ProviderID:             "p1",
		HasCompletedOnboarding: true,
		MealPreferences: models.MealPreferenceState{
			Status: models.PreferencesLoaded,
			Prefs:  models.MealPreferences{LunchEnabled: true},
		},
	}
}

func withTrial(s models.Session, trial models.TrialStatus, sub *models.SubscriptionStatus) models.Session {
	s.Trial = &trial
	s.Subscription = sub
	return s
}

func TestEvaluateUnauthenticated(t *testing.T) {
	s := models.Session{}
	assert.Equal(t, models.RedirectTo(models.ScreenWelcome), Evaluate(models.ScreenDashboard, s, models.Hold(), SyncState{}))

	s.HasCompletedOnboarding = true
	assert.Equal(t, models.RedirectTo(models.ScreenLogin), Evaluate(models.ScreenDashboard, s, models.Hold(), SyncState{}))

	for _, screen := range []models.Screen{models.ScreenWelcome, models.ScreenLogin, models.ScreenForgotPassword} {
		assert.Equal(t, models.Allow(), Evaluate(screen, s, models.Hold(), SyncState{}), screen)
	}
}

func TestUnauthenticatedNeverReachesGatedScreens(t *testing.T) {
	prevs := []models.Decision{models.Hold(), models.Allow(), models.RedirectTo(models.ScreenDashboard)}
	for _, screen := range gatedScreens {
		for _, onboarded := range []bool{false, true} {
			for _, prev := range prevs {
				s := models.Session{HasCompletedOnboarding: onboarded}
				d := Evaluate(screen, s, prev, SyncState{})
				assert.True(t, d.IsRedirect(), "%s onboarded=%v", screen, onboarded)
				assert.Contains(t, []models.Screen{models.ScreenWelcome, models.ScreenLogin}, d.Target)
			}
		}
	}
}

func TestPreferencesLoadingKeepsPreviousDecision(t *testing.T) {
	s := signedIn()
	s.MealPreferences = models.MealPreferenceState{Status: models.PreferencesLoading}
	prevs := []models.Decision{
		models.Hold(),
		models.Allow(),
		models.RedirectTo(models.ScreenSubscriptionPurchase),
		models.RedirectWithReturn(models.ScreenPreferenceSetup, models.ScreenMenus),
	}
	for _, prev := range prevs {
		for _, screen := range append(gatedScreens, models.ScreenLogin, models.ScreenSettings) {
			for _, unconfirmed := range []bool{false, true} {
				assert.Equal(t, prev, Evaluate(screen, s, prev, SyncState{Unconfirmed: unconfirmed}))
			}
		}
	}
}

func TestNoMealsEnabledRedirectsToPreferenceSetup(t *testing.T) {
	s := withTrial(signedIn(), models.TrialStatus{IsActive: true, DaysLeft: 3}, nil)
	s.MealPreferences.Prefs = models.MealPreferences{}

	assert.Equal(t,
		models.RedirectWithReturn(models.ScreenPreferenceSetup, models.ScreenCustomers),
		Evaluate(models.ScreenCustomers, s, models.Hold(), SyncState{}))
	assert.Equal(t, models.Allow(), Evaluate(models.ScreenSettings, s, models.Hold(), SyncState{}))
	assert.Equal(t, models.Allow(), Evaluate(models.ScreenPreferenceSetup, s, models.Hold(), SyncState{}))
}

func TestUnresolvedStatusHoldsGatedScreens(t *testing.T) {
	s := signedIn()
	assert.Equal(t, models.Hold(), Evaluate(models.ScreenDashboard, s, models.Allow(), SyncState{}))
	assert.Equal(t, models.Allow(), Evaluate(models.ScreenSettings, s, models.Hold(), SyncState{}))
	assert.Equal(t, models.Allow(), Evaluate(models.ScreenLogin, s, models.Hold(), SyncState{}))
}

func TestUnconfirmedStatusFailsClosed(t *testing.T) {
	unresolved := signedIn()
	cached := withTrial(signedIn(), models.TrialStatus{IsActive: true}, nil)
	for _, s := range []models.Session{unresolved, cached} {
		d := Evaluate(models.ScreenBilling, s, models.Hold(), SyncState{Unconfirmed: true})
		assert.Equal(t, models.RedirectTo(models.ScreenSubscriptionPurchase), d)
		assert.Equal(t, models.Allow(), Evaluate(models.ScreenSettings, s, models.Hold(), SyncState{Unconfirmed: true}))
	}
}

func TestExhaustedTrialRedirectsToSubscriptionPurchase(t *testing.T) {
	s := withTrial(signedIn(),
		models.TrialStatus{IsActive: false, RequiresSubscription: true},
		&models.SubscriptionStatus{Status: models.SubscriptionInactive},
	)
	assert.Equal(t, models.RedirectTo(models.ScreenSubscriptionPurchase), Evaluate(models.ScreenDashboard, s, models.Hold(), SyncState{}))
	assert.Equal(t, models.RedirectTo(models.ScreenSubscriptionPurchase), Evaluate(models.ScreenSettings, s, models.Hold(), SyncState{}))

	for _, exempt := range []models.Screen{models.ScreenSubscriptionPurchase, models.ScreenLogin, models.ScreenPreferenceSetup} {
		assert.Equal(t, models.Allow(), Evaluate(exempt, s, models.Hold(), SyncState{}), exempt)
	}
}

func TestActiveSubscriptionOverridesExhaustedTrial(t *testing.T) {
	s := withTrial(signedIn(),
		models.TrialStatus{IsActive: false, RequiresSubscription: true},
		&models.SubscriptionStatus{Status: models.SubscriptionActive},
	)
	assert.Equal(t, models.Allow(), Evaluate(models.ScreenDashboard, s, models.Hold(), SyncState{}))
}

func TestSignedInProviderLeavesAuthScreens(t *testing.T) {
	s := withTrial(signedIn(), models.TrialStatus{IsActive: true, DaysLeft: 10}, nil)
	for _, screen := range []models.Screen{models.ScreenIndex, models.ScreenWelcome, models.ScreenLogin} {
		assert.Equal(t, models.RedirectTo(models.ScreenDashboard), Evaluate(screen, s, models.Hold(), SyncState{}), screen)
	}
	assert.Equal(t, models.Allow(), Evaluate(models.ScreenReports, s, models.Hold(), SyncState{}))
}
