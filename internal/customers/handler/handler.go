package handler

import (
	"net/http"
	"strconv"

	"salesops_backend/internal/customers/service"
	"salesops_backend/internal/customers/transport"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for customers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new customers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the customer routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListAssigned)
}

// RegisterAdminRoutes registers the customer management routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.POST("/:id/assign", h.Assign)
}

// ListAssigned returns the calling salesman's customers.
func (h *Handler) ListAssigned(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	customers, err := h.svc.ListAssigned(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"customers": customers})
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	customer, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, customer)
}

func (h *Handler) Assign(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AssignCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.Assign(c.Request.Context(), customerID, req.SalesmanID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "assigned"})
}
