package handlers

import (
	"errors"
	"net/http"

	"mealdesk/models"
	"mealdesk/services/customer"
	"mealdesk/services/store"
	"mealdesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	Service customer.CustomerService
	Store   *store.Store
}

func NewCustomerHandler(svc customer.CustomerService, st *store.Store) *CustomerHandler {
	return &CustomerHandler{Service: svc, Store: st}
}

type toggleRequest struct {
	CurrentValue *bool `json:"currentValue" binding:"required"`
}

func providerID(c *gin.Context) string {
	return c.GetString("providerID")
}

// listResponse answers with the list view; a fetch error is reported next to it
// because the list itself stays usable.
func (h *CustomerHandler) listResponse(c *gin.Context, err error) {
	view := store.NewCustomerListView(h.Store.Customers())
	if err == nil {
		c.JSON(http.StatusOK, view)
		return
	}
	getLogger(c).Warn("Customer list fetch failed", zap.Error(err))
	c.JSON(utils.StatusForError(err), gin.H{"customers": view, "message": view.Error})
}

// InitialLoadHandler handles POST /api/customers/load.
func (h *CustomerHandler) InitialLoadHandler(c *gin.Context) {
	h.listResponse(c, h.Service.InitialLoad(c.Request.Context(), providerID(c)))
}

// RefreshHandler handles POST /api/customers/refresh.
func (h *CustomerHandler) RefreshHandler(c *gin.Context) {
	h.listResponse(c, h.Service.Refresh(c.Request.Context(), providerID(c)))
}

// LoadMoreHandler handles POST /api/customers/more.
func (h *CustomerHandler) LoadMoreHandler(c *gin.Context) {
	err := h.Service.LoadMore(c.Request.Context(), providerID(c))
	if errors.Is(err, customer.ErrNoCursor) {
		c.JSON(http.StatusPreconditionFailed, gin.H{"message": "Load the first page before loading more"})
		return
	}
	h.listResponse(c, err)
}

// CreateCustomerHandler handles POST /api/customers.
func (h *CustomerHandler) CreateCustomerHandler(c *gin.Context) {
	var req models.Customer
	if err := c.ShouldBindJSON(&req); err != nil {
		getLogger(c).Warn("Invalid customer payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request: " + err.Error()})
		return
	}
	req.ProviderID = providerID(c)
	created, err := h.Service.Create(c.Request.Context(), req)
	if err != nil {
		utils.AppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateCustomerHandler handles PUT /api/customers/:id.
func (h *CustomerHandler) UpdateCustomerHandler(c *gin.Context) {
	var patch models.CustomerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		getLogger(c).Warn("Invalid customer patch", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request: " + err.Error()})
		return
	}
	updated, err := h.Service.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		utils.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCustomerHandler handles DELETE /api/customers/:id.
func (h *CustomerHandler) DeleteCustomerHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.Service.Delete(c.Request.Context(), id); err != nil {
		utils.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// ToggleActiveHandler handles PATCH /api/customers/:id/toggle-active.
func (h *CustomerHandler) ToggleActiveHandler(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "currentValue is required"})
		return
	}
	err := h.Service.ToggleActive(c.Request.Context(), providerID(c), c.Param("id"), *req.CurrentValue)
	switch {
	case errors.Is(err, customer.ErrUnknownCustomer):
		c.JSON(http.StatusNotFound, gin.H{"message": "Customer not found"})
	case err != nil:
		utils.AppError(c, err)
	default:
		c.JSON(http.StatusOK, store.NewCustomerListView(h.Store.Customers()))
	}
}
