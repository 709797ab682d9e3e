// Package dto defines the HTTP request bodies of the v1 API. Response
// bodies reuse the domain types' JSON forms.
package dto

// LoginRequest is the admin login body.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// SellerTokenRequest asks for a token bound to one seller account.
type SellerTokenRequest struct {
	AccountCode string `json:"accountCode" binding:"required"`
}

// CreateAccountRequest creates a seller account.
type CreateAccountRequest struct {
	Code       string `json:"code" binding:"required"`
	Name       string `json:"name" binding:"required"`
	ExternalID *int64 `json:"externalId"`
}

// SetActiveRequest toggles an account or product.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// CreateProductRequest creates a catalog product. Price is in minor
// currency units.
type CreateProductRequest struct {
	Name  string `json:"name" binding:"required"`
	Price int64  `json:"price" binding:"required,gt=0"`
}

// SetPriceRequest changes a product's current price.
type SetPriceRequest struct {
	Price int64 `json:"price" binding:"required,gt=0"`
}

// OrderLineRequest is one line of a supply order or restock request.
type OrderLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest creates a supply order or restock request.
type CreateOrderRequest struct {
	Lines []OrderLineRequest `json:"lines" binding:"required"`
}

// ReceiptLineRequest reports how much of one order line actually
// arrived.
type ReceiptLineRequest struct {
	LineID   string `json:"lineId" binding:"required"`
	Quantity int64  `json:"quantity" binding:"gte=0"`
}

// ConfirmReceiptRequest confirms delivery of a shipped order.
type ConfirmReceiptRequest struct {
	Lines []ReceiptLineRequest `json:"lines" binding:"required"`
	// ReorderShortage files a new order for undelivered quantity at the
	// original frozen prices.
	ReorderShortage bool `json:"reorderShortage"`
}

// FulfillRequest reports procured stock for one product.
type FulfillRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// CreatePaymentRequest files a payment request. Amount is in minor
// currency units.
type CreatePaymentRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// ApprovePaymentRequest optionally overrides the paid amount.
type ApprovePaymentRequest struct {
	Amount *int64 `json:"amount" binding:"omitempty,gt=0"`
}

// RecordSaleRequest records one completed sale.
type RecordSaleRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}
