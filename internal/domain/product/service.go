package product

import (
	"context"
	"fmt"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/pkg/logger"
)

// Service provides catalog admin operations for products.
type Service struct {
	repo Repository
}

// NewService creates a new product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a product to the catalog.
func (s *Service) Create(ctx context.Context, name string, price types.MinorUnits) (*Product, error) {
	p := New(name, price)
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "id", p.ID, "name", p.Name, "price", p.Price)
	return p, nil
}

// SetPrice changes the current price. Frozen order lines are unaffected.
func (s *Service) SetPrice(ctx context.Context, productID id.ID, price types.MinorUnits) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	old := p.Price
	p.Price = price
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	logger.Info(ctx, "product price changed", "id", p.ID, "old", old, "new", price)
	return p, nil
}

// SetActive hides or restores a product in the catalog.
func (s *Service) SetActive(ctx context.Context, productID id.ID, active bool) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	p.IsActive = active
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns products, optionally only active ones.
func (s *Service) List(ctx context.Context, onlyActive bool) ([]Product, error) {
	return s.repo.List(ctx, onlyActive)
}
