package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fructus/internal/core/types"
	"fructus/internal/domain/payout"
	"fructus/internal/infrastructure/http/v1/dto"
)

// PayoutHandler drives payment requests.
type PayoutHandler struct {
	BaseHandler
	service *payout.Service
}

// NewPayoutHandler creates a payout handler.
func NewPayoutHandler(service *payout.Service) *PayoutHandler {
	return &PayoutHandler{service: service}
}

// Create files a payment request for the account in the path.
// POST /api/v1/accounts/:accountID/payments
func (h *PayoutHandler) Create(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	request, err := h.service.Create(c.Request.Context(), accountID, types.MinorUnits(req.Amount))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// Approve pays a request out, optionally overriding the amount.
// Admin only.
// POST /api/v1/payments/:requestID/approve
func (h *PayoutHandler) Approve(c *gin.Context) {
	requestID, ok := h.ParseID(c, "requestID")
	if !ok {
		return
	}
	var req dto.ApprovePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var override *types.MinorUnits
	if req.Amount != nil {
		amount := types.MinorUnits(*req.Amount)
		override = &amount
	}

	request, err := h.service.Approve(c.Request.Context(), requestID, override)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// Reject declines a request. Admin only.
// POST /api/v1/payments/:requestID/reject
func (h *PayoutHandler) Reject(c *gin.Context) {
	requestID, ok := h.ParseID(c, "requestID")
	if !ok {
		return
	}

	request, err := h.service.Reject(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// List returns payment requests of one account.
// GET /api/v1/accounts/:accountID/payments
func (h *PayoutHandler) List(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}

	f := payout.Filter{
		AccountID: &accountID,
		Limit:     h.ParseIntQuery(c, "limit", 50),
	}
	if s := c.Query("status"); s != "" {
		status := payout.Status(s)
		f.Status = &status
	}

	requests, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": requests})
}
