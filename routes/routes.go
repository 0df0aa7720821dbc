package routes

import (
	"time"

	"mealdesk/handlers"
	"mealdesk/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterSessionRoutes registers session lifecycle endpoints.
func RegisterSessionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/session")
	{
		api.POST("/login", hb.LoginHandler)
		api.POST("/logout", hb.LogoutHandler)
		api.POST("/onboarding", hb.CompleteOnboarding)
		api.PUT("/preferences", hb.SavePreferencesHandler)
	}
}

// RegisterNavigationRoutes registers the state snapshot and entitlement gate endpoints.
func RegisterNavigationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	{
		api.GET("/state", hb.GetStateHandler)
		api.GET("/navigation", hb.GetDecisionHandler)
		api.POST("/navigation", hb.ScreenChangeHandler)
	}
}

// RegisterCustomerRoutes registers customer list endpoints. All of them need a signed-in provider.
func RegisterCustomerRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/customers")
	{
		api.Use(middleware.RequireSession(hb.Store))
		api.POST("/load", hb.InitialLoadHandler)
		api.POST("/refresh", hb.RefreshHandler)
		api.POST("/more", hb.LoadMoreHandler)
		api.POST("", hb.CreateCustomerHandler)
		api.PUT("/:id", hb.UpdateCustomerHandler)
		api.DELETE("/:id", hb.DeleteCustomerHandler)
		api.PATCH("/:id/toggle-active", hb.ToggleActiveHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterSessionRoutes(r, hb)
	RegisterNavigationRoutes(r, hb)
	RegisterCustomerRoutes(r, hb)
}
