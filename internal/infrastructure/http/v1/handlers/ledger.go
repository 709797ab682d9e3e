package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/internal/domain/account"
	"fructus/internal/domain/ledger"
	"fructus/internal/domain/product"
	"fructus/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes positions, balances and the sale log.
type LedgerHandler struct {
	BaseHandler
	service  *ledger.Service
	accounts *account.Service
	products *product.Service
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(service *ledger.Service, accounts *account.Service, products *product.Service) *LedgerHandler {
	return &LedgerHandler{service: service, accounts: accounts, products: products}
}

// Positions returns the stock of one account.
// GET /api/v1/accounts/:accountID/positions
func (h *LedgerHandler) Positions(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}

	positions, err := h.service.ListPositions(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": positions})
}

// Balance returns debt and pending of one account.
// GET /api/v1/accounts/:accountID/balance
func (h *LedgerHandler) Balance(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// RecordSale records a completed sale at the live catalog price.
// POST /api/v1/accounts/:accountID/sales
func (h *LedgerHandler) RecordSale(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}
	var req dto.RecordSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id").WithDetail("product_id", req.ProductID))
		return
	}

	ctx := c.Request.Context()
	acc, err := h.accounts.Get(ctx, accountID)
	if err != nil {
		h.Error(c, err)
		return
	}
	prod, err := h.products.Get(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !prod.IsActive {
		h.Error(c, apperror.NewValidation("product is not active").WithDetail("product_id", req.ProductID))
		return
	}

	sale, err := h.service.RecordSale(ctx, ledger.SaleParams{
		AccountID:   acc.ID,
		AccountCode: acc.Code,
		ProductID:   prod.ID,
		Quantity:    types.Quantity(req.Quantity),
		UnitPrice:   prod.Price,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// Sales returns the sale log of one account.
// GET /api/v1/accounts/:accountID/sales
func (h *LedgerHandler) Sales(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}

	filter := ledger.SaleFilter{Limit: h.ParseIntQuery(c, "limit", 100)}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from timestamp").WithDetail("from", v))
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to timestamp").WithDetail("to", v))
			return
		}
		filter.To = &t
	}

	sales, err := h.service.ListSales(c.Request.Context(), accountID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sales})
}
