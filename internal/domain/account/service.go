package account

import (
	"context"
	"fmt"
	"time"

	"fructus/internal/core/id"
	"fructus/pkg/logger"
)

// Service provides account onboarding operations. Destructive removal is
// deliberately absent: accounts referenced by orders are never deleted.
type Service struct {
	repo Repository
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new reseller account.
func (s *Service) Create(ctx context.Context, code, name string, externalID *int64) (*Account, error) {
	a := New(code, name)
	a.ExternalID = externalID

	if err := a.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	logger.Info(ctx, "account created", "id", a.ID, "code", a.Code)
	return a, nil
}

// SetActive blocks or unblocks an account.
func (s *Service) SetActive(ctx context.Context, accountID id.ID, active bool) (*Account, error) {
	a, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	a.IsActive = active
	if active && a.ActivatedAt == nil {
		now := time.Now().UTC()
		a.ActivatedAt = &now
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	logger.Info(ctx, "account activity changed", "id", a.ID, "active", active)
	return a, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.repo.GetByID(ctx, accountID)
}

// GetByCode returns an account by its short code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Account, error) {
	return s.repo.GetByCode(ctx, code)
}

// Central returns the central-warehouse account.
func (s *Service) Central(ctx context.Context) (*Account, error) {
	return s.repo.GetCentral(ctx)
}

// List returns accounts, optionally only active ones.
func (s *Service) List(ctx context.Context, onlyActive bool) ([]Account, error) {
	return s.repo.List(ctx, onlyActive)
}
