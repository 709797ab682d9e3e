package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/internal/domain/supply"
	"fructus/internal/infrastructure/http/v1/dto"
)

// SupplyHandler drives the supply order lifecycle.
type SupplyHandler struct {
	BaseHandler
	service *supply.Service
}

// NewSupplyHandler creates a supply handler.
func NewSupplyHandler(service *supply.Service) *SupplyHandler {
	return &SupplyHandler{service: service}
}

// Create files an order for the account in the path.
// POST /api/v1/accounts/:accountID/orders
func (h *SupplyHandler) Create(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := orderLines(req.Lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.service.Create(c.Request.Context(), accountID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// Ship moves every line from central stock to the order's account.
// Admin only.
// POST /api/v1/orders/:orderID/ship
func (h *SupplyHandler) Ship(c *gin.Context) {
	orderID, ok := h.ParseID(c, "orderID")
	if !ok {
		return
	}

	order, err := h.service.Ship(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ConfirmReceipt completes a shipped order with actual quantities.
// Only the order's account (or the admin) may confirm.
// POST /api/v1/orders/:orderID/receipt
func (h *SupplyHandler) ConfirmReceipt(c *gin.Context) {
	orderID, ok := h.ParseID(c, "orderID")
	if !ok {
		return
	}
	existing, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !h.AuthorizeAccount(c, existing.AccountID) {
		return
	}
	var req dto.ConfirmReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	received := make(map[id.ID]types.Quantity, len(req.Lines))
	for _, l := range req.Lines {
		lineID, err := id.Parse(l.LineID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid line id").WithDetail("line_id", l.LineID))
			return
		}
		received[lineID] = types.Quantity(l.Quantity)
	}

	order, shortage, err := h.service.ConfirmReceipt(c.Request.Context(), orderID, received, req.ReorderShortage)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := gin.H{"order": order}
	if shortage != nil {
		resp["shortageOrder"] = shortage
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel voids a new order. Only the order's account (or the admin)
// may cancel.
// POST /api/v1/orders/:orderID/cancel
func (h *SupplyHandler) Cancel(c *gin.Context) {
	orderID, ok := h.ParseID(c, "orderID")
	if !ok {
		return
	}
	existing, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !h.AuthorizeAccount(c, existing.AccountID) {
		return
	}

	order, err := h.service.Cancel(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Get returns one order with lines. Sellers only see their own.
// GET /api/v1/orders/:orderID
func (h *SupplyHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "orderID")
	if !ok {
		return
	}

	order, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !h.AuthorizeAccount(c, order.AccountID) {
		return
	}
	c.JSON(http.StatusOK, order)
}

// List returns orders of one account.
// GET /api/v1/accounts/:accountID/orders
func (h *SupplyHandler) List(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}

	f := supply.Filter{
		AccountID: &accountID,
		Limit:     h.ParseIntQuery(c, "limit", 50),
	}
	if s := c.Query("status"); s != "" {
		status := supply.Status(s)
		f.Status = &status
	}

	orders, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orders})
}

// orderLines converts request lines to domain input.
func orderLines(in []dto.OrderLineRequest) ([]supply.NewLine, error) {
	lines := make([]supply.NewLine, 0, len(in))
	for _, l := range in {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").WithDetail("product_id", l.ProductID)
		}
		lines = append(lines, supply.NewLine{
			ProductID: productID,
			Quantity:  types.Quantity(l.Quantity),
		})
	}
	return lines, nil
}
