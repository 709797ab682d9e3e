// Package product provides the product catalog. The ledger core
// references products and their current price but never owns them;
// prices are threaded into ledger operations as explicit parameters.
package product

import (
	"context"
	"strings"
	"time"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Product is a catalog item with its current unit price.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	// Price is the current unit price in minor units. Supply orders
	// freeze it into their lines at creation; restock and sales use
	// the live value.
	Price types.MinorUnits `db:"price" json:"price"`

	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// New creates an active product.
func New(name string, price types.MinorUnits) *Product {
	return &Product{
		ID:        id.New(),
		Name:      strings.TrimSpace(name),
		Price:     price,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks catalog invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("product name is required").WithDetail("field", "name")
	}
	if !p.Price.IsPositive() {
		return apperror.NewValidation("product price must be positive").WithDetail("field", "price")
	}
	return nil
}
