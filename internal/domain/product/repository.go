package product

import (
	"context"

	"fructus/internal/core/id"
)

// Repository defines persistence for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	List(ctx context.Context, onlyActive bool) ([]Product, error)
}
