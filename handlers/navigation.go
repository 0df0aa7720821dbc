package handlers

import (
	"net/http"

	"mealdesk/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gate is the part of the entitlement gate the view talks to.
type Gate interface {
	OnScreenChange(screen models.Screen) models.Decision
	Current() (models.Screen, models.Decision)
}

type NavigationHandler struct {
	Gate Gate
}

func NewNavigationHandler(gate Gate) *NavigationHandler {
	return &NavigationHandler{Gate: gate}
}

type screenChangeRequest struct {
	Screen string `json:"screen" binding:"required"`
}

type decisionResponse struct {
	Screen   models.Screen   `json:"screen"`
	Decision models.Decision `json:"decision"`
}

// ScreenChangeHandler handles POST /api/navigation.
func (h *NavigationHandler) ScreenChangeHandler(c *gin.Context) {
	var req screenChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		getLogger(c).Warn("Invalid screen change", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "screen is required"})
		return
	}
	screen := models.Screen(req.Screen)
	decision := h.Gate.OnScreenChange(screen)
	c.JSON(http.StatusOK, decisionResponse{Screen: screen, Decision: decision})
}

// GetDecisionHandler handles GET /api/navigation.
func (h *NavigationHandler) GetDecisionHandler(c *gin.Context) {
	screen, decision := h.Gate.Current()
	c.JSON(http.StatusOK, decisionResponse{Screen: screen, Decision: decision})
}
