package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/internal/domain/restock"
	"fructus/internal/infrastructure/http/v1/dto"
)

// RestockHandler drives restock requests and their fulfillment.
type RestockHandler struct {
	BaseHandler
	service *restock.Service
}

// NewRestockHandler creates a restock handler.
func NewRestockHandler(service *restock.Service) *RestockHandler {
	return &RestockHandler{service: service}
}

// Create files a restock request for the account in the path.
// POST /api/v1/accounts/:accountID/restocks
func (h *RestockHandler) Create(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines := make([]restock.NewLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("product_id", l.ProductID))
			return
		}
		lines = append(lines, restock.NewLine{
			ProductID: productID,
			Quantity:  types.Quantity(l.Quantity),
		})
	}

	request, err := h.service.Create(c.Request.Context(), accountID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// Fulfill reports procured stock; it enters central inventory and is
// allocated to pending requests oldest first. Admin only.
// POST /api/v1/restocks/fulfill
func (h *RestockHandler) Fulfill(c *gin.Context) {
	var req dto.FulfillRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id").WithDetail("product_id", req.ProductID))
		return
	}

	result, err := h.service.Fulfill(c.Request.Context(), productID, types.Quantity(req.Quantity))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Cancel voids a pending request. Only the request's account (or the
// admin) may cancel.
// POST /api/v1/restocks/:requestID/cancel
func (h *RestockHandler) Cancel(c *gin.Context) {
	requestID, ok := h.ParseID(c, "requestID")
	if !ok {
		return
	}
	existing, err := h.service.Get(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !h.AuthorizeAccount(c, existing.AccountID) {
		return
	}

	request, err := h.service.Cancel(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// Get returns one request with lines. Sellers only see their own.
// GET /api/v1/restocks/:requestID
func (h *RestockHandler) Get(c *gin.Context) {
	requestID, ok := h.ParseID(c, "requestID")
	if !ok {
		return
	}

	request, err := h.service.Get(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !h.AuthorizeAccount(c, request.AccountID) {
		return
	}
	c.JSON(http.StatusOK, request)
}

// List returns requests of one account.
// GET /api/v1/accounts/:accountID/restocks
func (h *RestockHandler) List(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}

	f := restock.Filter{
		AccountID: &accountID,
		Limit:     h.ParseIntQuery(c, "limit", 50),
	}
	if s := c.Query("status"); s != "" {
		status := restock.Status(s)
		f.Status = &status
	}

	requests, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": requests})
}

// History returns procurement history. Admin only.
// GET /api/v1/restocks/history
func (h *RestockHandler) History(c *gin.Context) {
	var productID *id.ID
	if p := c.Query("productId"); p != "" {
		parsed, err := id.Parse(p)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("product_id", p))
			return
		}
		productID = &parsed
	}

	entries, err := h.service.History(c.Request.Context(), productID, h.ParseIntQuery(c, "limit", 100))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}
