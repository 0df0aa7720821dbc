package handlers

import (
	"mealdesk/services/store"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the view bridge endpoint handlers.
type HandlerBundle struct {
	Store *store.Store

	// Health
	HealthHandler gin.HandlerFunc

	// State and navigation
	GetStateHandler     gin.HandlerFunc
	ScreenChangeHandler gin.HandlerFunc
	GetDecisionHandler  gin.HandlerFunc

	// Session endpoints
	LoginHandler           gin.HandlerFunc
	LogoutHandler          gin.HandlerFunc
	CompleteOnboarding     gin.HandlerFunc
	SavePreferencesHandler gin.HandlerFunc

	// Customer endpoints
	InitialLoadHandler    gin.HandlerFunc
	RefreshHandler        gin.HandlerFunc
	LoadMoreHandler       gin.HandlerFunc
	CreateCustomerHandler gin.HandlerFunc
	UpdateCustomerHandler gin.HandlerFunc
	DeleteCustomerHandler gin.HandlerFunc
	ToggleActiveHandler   gin.HandlerFunc
}
