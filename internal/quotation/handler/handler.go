package handler

import (
	"net/http"
	"strconv"

	"salesops_backend/internal/quotation/service"
	"salesops_backend/internal/quotation/session"
	"salesops_backend/internal/quotation/staging"
	"salesops_backend/internal/quotation/transport"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for quotation sessions and lifecycle.
type Handler struct {
	svc      *service.Service
	sessions *session.Manager
	handoffs staging.HandoffStore
	val      *validator.Validator
}

// New creates a new quotation handler.
func New(svc *service.Service, sessions *session.Manager, handoffs staging.HandoffStore, val *validator.Validator) *Handler {
	return &Handler{svc: svc, sessions: sessions, handoffs: handoffs, val: val}
}

// RegisterRoutes registers the quotation routes on the protected group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sess := rg.Group("/session")
	sess.POST("", h.OpenSession)
	sess.DELETE("", h.CloseSession)
	sess.GET("", h.GetSession)
	sess.POST("/scanner", h.OpenScanner)
	sess.DELETE("/scanner", h.CloseScanner)
	sess.POST("/scan", h.Scan)
	sess.POST("/resolve", h.ResolveCode)
	sess.GET("/staged", h.ListStaged)
	sess.DELETE("/staged/:code", h.RemoveStaged)
	sess.POST("/lines", h.AddBlankLine)
	sess.POST("/lines/from-catalog", h.AddFromCatalog)
	sess.PATCH("/lines/:lineId", h.UpdateLineField)
	sess.POST("/lines/:lineId/product", h.SelectLineProduct)
	sess.DELETE("/lines/:lineId", h.RemoveLine)
	sess.POST("/customer", h.SelectCustomer)
	sess.PATCH("/details", h.UpdateDetails)
	sess.POST("/save", h.Save)

	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/edit", h.OpenForEdit)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.DELETE("/:id", h.Delete)
}

// RegisterHandoffRoutes registers the customer handoff endpoint, reachable
// by the modules that stage visit targets and milestones.
func (h *Handler) RegisterHandoffRoutes(rg *gin.RouterGroup) {
	rg.POST("/handoffs", h.StageHandoff)
}

func (h *Handler) OpenSession(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	snap, err := h.sessions.Open(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) CloseSession(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	if err := h.sessions.Close(c.Request.Context(), id.UserID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "closed"})
}

func (h *Handler) GetSession(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	snap, err := h.sessions.Snapshot(id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) OpenScanner(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	snap, err := h.sessions.OpenScanner(id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) CloseScanner(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	snap, err := h.sessions.CloseScanner(id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) Scan(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	res, err := h.sessions.Scan(c.Request.Context(), id.UserID(), req.Payload)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}

func (h *Handler) ResolveCode(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.ResolveCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	res, err := h.sessions.ResolveCode(c.Request.Context(), id.UserID(), req.Code)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}

func (h *Handler) ListStaged(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	staged, err := h.sessions.StagedProducts(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"staged": staged})
}

func (h *Handler) RemoveStaged(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	code := c.Param("code")
	if err := h.sessions.RemoveStaged(c.Request.Context(), id.UserID(), code); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "removed"})
}

func (h *Handler) AddBlankLine(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	snap, err := h.sessions.AddBlankLine(id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) AddFromCatalog(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.AddFromCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	res, err := h.sessions.AddLineFromCatalog(c.Request.Context(), id.UserID(), req.ProductID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}

func (h *Handler) UpdateLineField(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	lineID, ok := parseLineID(c)
	if !ok {
		return
	}

	var req transport.UpdateLineFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	snap, err := h.sessions.UpdateLineField(id.UserID(), lineID, req.Field, req.Value)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) SelectLineProduct(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	lineID, ok := parseLineID(c)
	if !ok {
		return
	}

	var req transport.SelectLineProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	snap, err := h.sessions.SelectLineProduct(c.Request.Context(), id.UserID(), lineID, req.ProductRef)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) RemoveLine(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	lineID, ok := parseLineID(c)
	if !ok {
		return
	}

	snap, err := h.sessions.RemoveLine(id.UserID(), lineID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) SelectCustomer(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.SelectCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	snap, err := h.sessions.SelectCustomer(id.UserID(), req.Ref)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) UpdateDetails(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.UpdateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	snap, err := h.sessions.UpdateDetails(id.UserID(), req.ValidUntil, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) Save(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.Save(c.Request.Context(), id.UserID(), id.Name(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.SaveResponse{Quotation: *resp})
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), id.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	quotationID, ok := parseQuotationID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), id.UserID(), quotationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) OpenForEdit(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	quotationID, ok := parseQuotationID(c)
	if !ok {
		return
	}

	snap, err := h.svc.OpenForEdit(c.Request.Context(), id.UserID(), quotationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SessionResponse{Session: snap})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	quotationID, ok := parseQuotationID(c)
	if !ok {
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.UpdateStatus(c.Request.Context(), id.UserID(), id.Name(), quotationID, req.Status); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": string(req.Status)})
}

func (h *Handler) Delete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	quotationID, ok := parseQuotationID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id.UserID(), quotationID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "deleted"})
}

// StageHandoff stages a customer for a salesman's next composition session.
func (h *Handler) StageHandoff(c *gin.Context) {
	var req transport.HandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	handoff := staging.Handoff{
		Source:  staging.HandoffSource(req.Source),
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Pincode: req.Pincode,
	}
	if err := h.handoffs.Stage(c.Request.Context(), req.SalesmanID.String(), handoff); httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"status": "staged"})
}

func parseQuotationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func parseLineID(c *gin.Context) (int64, bool) {
	lineID, err := strconv.ParseInt(c.Param("lineId"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return 0, false
	}
	return lineID, true
}
