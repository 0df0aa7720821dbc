package handlers

import (
	"net/http"

	"mealdesk/models"
	"mealdesk/services/session"
	"mealdesk/services/store"
	"mealdesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	Service session.SessionService
	Store   *store.Store
	// ResetHooks run on logout and when a different provider signs in.
	ResetHooks []func()
}

func NewSessionHandler(svc session.SessionService, st *store.Store, resetHooks ...func()) *SessionHandler {
	return &SessionHandler{Service: svc, Store: st, ResetHooks: resetHooks}
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

type preferencesRequest struct {
	LunchEnabled  *bool `json:"lunchEnabled" binding:"required"`
	DinnerEnabled *bool `json:"dinnerEnabled" binding:"required"`
}

func (h *SessionHandler) reset() {
	for _, hook := range h.ResetHooks {
		hook()
	}
}

// LoginHandler handles POST /api/session/login.
func (h *SessionHandler) LoginHandler(c *gin.Context) {
	logger := getLogger(c)
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "token is required"})
		return
	}

	previous := h.Store.Session().ProviderID
	if err := h.Service.Login(c.Request.Context(), req.Token); err != nil {
		utils.AppError(c, err)
		return
	}
	if current := h.Store.Session().ProviderID; previous != "" && previous != current {
		h.reset()
	}
	c.JSON(http.StatusOK, store.NewSessionView(h.Store.Session()))
}

// LogoutHandler handles POST /api/session/logout.
func (h *SessionHandler) LogoutHandler(c *gin.Context) {
	if err := h.Service.Logout(c.Request.Context()); err != nil {
		getLogger(c).Error("Failed to persist logout", zap.Error(err))
	}
	h.reset()
	c.JSON(http.StatusOK, store.NewSessionView(h.Store.Session()))
}

// CompleteOnboardingHandler handles POST /api/session/onboarding.
func (h *SessionHandler) CompleteOnboardingHandler(c *gin.Context) {
	if err := h.Service.CompleteOnboarding(c.Request.Context()); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save onboarding", err.Error())
		return
	}
	c.JSON(http.StatusOK, store.NewSessionView(h.Store.Session()))
}

// SavePreferencesHandler handles PUT /api/session/preferences.
func (h *SessionHandler) SavePreferencesHandler(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		getLogger(c).Warn("Invalid preferences request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "lunchEnabled and dinnerEnabled are required"})
		return
	}
	prefs := models.MealPreferences{LunchEnabled: *req.LunchEnabled, DinnerEnabled: *req.DinnerEnabled}
	if err := h.Service.SaveMealPreferences(c.Request.Context(), prefs); err != nil {
		utils.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, store.NewSessionView(h.Store.Session()))
}
