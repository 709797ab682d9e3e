package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fructus/internal/domain/auth"
	"fructus/internal/infrastructure/http/v1/dto"
)

// AuthHandler issues tokens.
type AuthHandler struct {
	BaseHandler
	service *auth.Service
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login authenticates the admin.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	token, err := h.service.LoginAdmin(c.Request.Context(), req.Password)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// SellerToken mints a token for a seller account. Admin only.
// POST /api/v1/auth/seller-token
func (h *AuthHandler) SellerToken(c *gin.Context) {
	var req dto.SellerTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	token, err := h.service.IssueSellerToken(c.Request.Context(), req.AccountCode)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}
