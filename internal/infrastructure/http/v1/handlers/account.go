package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fructus/internal/domain/account"
	"fructus/internal/infrastructure/http/v1/dto"
)

// AccountHandler manages the account catalog. Admin only.
type AccountHandler struct {
	BaseHandler
	service *account.Service
}

// NewAccountHandler creates an account handler.
func NewAccountHandler(service *account.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

// Create registers a seller account.
// POST /api/v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	acc, err := h.service.Create(c.Request.Context(), req.Code, req.Name, req.ExternalID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

// SetActive activates or deactivates an account.
// PATCH /api/v1/accounts/:accountID/active
func (h *AccountHandler) SetActive(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	acc, err := h.service.SetActive(c.Request.Context(), accountID, req.Active)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// Get returns one account.
// GET /api/v1/accounts/:accountID
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountID")
	if !ok {
		return
	}

	acc, err := h.service.Get(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// List returns accounts; ?active=true narrows to active ones.
// GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.service.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": accounts})
}
