package handlers

import (
	"net/http"

	"mealdesk/services/store"
	"mealdesk/utils"

	"github.com/gin-gonic/gin"
)

type StateHandler struct {
	Store *store.Store
}

func NewStateHandler(st *store.Store) *StateHandler {
	return &StateHandler{Store: st}
}

// GetStateHandler handles GET /api/state.
func (h *StateHandler) GetStateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Snapshot())
}

// HealthHandler handles GET /health.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "health": utils.GetHealthStatus()})
}
