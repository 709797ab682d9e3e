package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fructus/internal/core/types"
	"fructus/internal/domain/product"
	"fructus/internal/infrastructure/http/v1/dto"
)

// ProductHandler manages the product catalog.
type ProductHandler struct {
	BaseHandler
	service *product.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(service *product.Service) *ProductHandler {
	return &ProductHandler{service: service}
}

// Create adds a product. Admin only.
// POST /api/v1/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req.Name, types.MinorUnits(req.Price))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// SetPrice changes the current price. Admin only; frozen order prices
// are untouched.
// PATCH /api/v1/products/:productID/price
func (h *ProductHandler) SetPrice(c *gin.Context) {
	productID, ok := h.ParseID(c, "productID")
	if !ok {
		return
	}
	var req dto.SetPriceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.SetPrice(c.Request.Context(), productID, types.MinorUnits(req.Price))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SetActive activates or deactivates a product. Admin only.
// PATCH /api/v1/products/:productID/active
func (h *ProductHandler) SetActive(c *gin.Context) {
	productID, ok := h.ParseID(c, "productID")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.SetActive(c.Request.Context(), productID, req.Active)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// List returns the catalog; ?active=true narrows to active products.
// GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.service.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products})
}
