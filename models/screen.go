package models

// Screen identifies a navigable screen of the app.
type Screen string

const (
	ScreenIndex                Screen = "index"
	ScreenWelcome              Screen = "welcome"
	ScreenLogin                Screen = "login"
	ScreenForgotPassword       Screen = "forgot-password"
	ScreenDashboard            Screen = "dashboard"
	ScreenCustomers            Screen = "customers"
	ScreenCustomerForm         Screen = "customer-form"
	ScreenMenus                Screen = "menus"
	ScreenDailyOrders          Screen = "daily-orders"
	ScreenBilling              Screen = "billing"
	ScreenReports              Screen = "reports"
	ScreenSettings             Screen = "settings"
	ScreenPreferenceSetup      Screen = "preference-setup"
	ScreenSubscriptionPurchase Screen = "subscription-purchase"
)

var publicScreens = map[Screen]bool{
	ScreenWelcome:        true,
	ScreenLogin:          true,
	ScreenForgotPassword: true,
}

var authOnlyScreens = map[Screen]bool{
	ScreenIndex:   true,
	ScreenWelcome: true,
	ScreenLogin:   true,
}

// Screens that need an active trial or subscription, and at least one meal enabled.
var gatedScreens = map[Screen]bool{
	ScreenDashboard:    true,
	ScreenCustomers:    true,
	ScreenCustomerForm: true,
	ScreenMenus:        true,
	ScreenDailyOrders:  true,
	ScreenBilling:      true,
	ScreenReports:      true,
}

// IsPublic reports whether the screen is reachable without a token.
func (s Screen) IsPublic() bool { return publicScreens[s] }

// IsAuthOnly reports whether the screen only makes sense before signing in.
func (s Screen) IsAuthOnly() bool { return authOnlyScreens[s] }

// IsGated reports whether the screen requires entitlement and meal preferences.
func (s Screen) IsGated() bool { return gatedScreens[s] }

// RequiresPreferences reports whether the screen needs lunch or dinner enabled.
func (s Screen) RequiresPreferences() bool { return gatedScreens[s] }

// DecisionKind is the outcome class of an entitlement evaluation.
type DecisionKind string

const (
	// DecisionHold means no navigation: the view keeps its current state.
	DecisionHold     DecisionKind = "hold"
	DecisionAllow    DecisionKind = "allow"
	DecisionRedirect DecisionKind = "redirect"
)

// Decision is the result of evaluating a screen against the session.
type Decision struct {
	Kind     DecisionKind `json:"kind"`
	Target   Screen       `json:"target,omitempty"`
	ReturnTo Screen       `json:"returnTo,omitempty"`
}

func Allow() Decision { return Decision{Kind: DecisionAllow} }

func Hold() Decision { return Decision{Kind: DecisionHold} }

func RedirectTo(target Screen) Decision {
	return Decision{Kind: DecisionRedirect, Target: target}
}

func RedirectWithReturn(target, returnTo Screen) Decision {
	return Decision{Kind: DecisionRedirect, Target: target, ReturnTo: returnTo}
}

func (d Decision) IsRedirect() bool { return d.Kind == DecisionRedirect }
