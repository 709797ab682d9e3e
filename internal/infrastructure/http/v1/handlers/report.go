package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/domain/report"
)

// ReportHandler serves the read-only reports. Admin only.
type ReportHandler struct {
	BaseHandler
	service *report.Service
}

// NewReportHandler creates a report handler.
func NewReportHandler(service *report.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

// Stock returns valued positions of one account.
// GET /api/v1/reports/stock/:accountID
func (h *ReportHandler) Stock(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}

	rows, err := h.service.Stock(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// StockTotal returns system-wide stock summed across accounts.
// GET /api/v1/reports/stock
func (h *ReportHandler) StockTotal(c *gin.Context) {
	rows, err := h.service.StockTotal(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// Balances returns debt and pending of every active account.
// GET /api/v1/reports/balances
func (h *ReportHandler) Balances(c *gin.Context) {
	rows, err := h.service.Balances(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// Sales aggregates sales over a period. Defaults to the last 30 days;
// ?accountId narrows to one account.
// GET /api/v1/reports/sales
func (h *ReportHandler) Sales(c *gin.Context) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from timestamp").WithDetail("from", v))
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to timestamp").WithDetail("to", v))
			return
		}
		to = t
	}

	var accountID *id.ID
	if v := c.Query("accountId"); v != "" {
		parsed, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid account id").WithDetail("account_id", v))
			return
		}
		accountID = &parsed
	}

	summary, err := h.service.Sales(c.Request.Context(), accountID, from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
