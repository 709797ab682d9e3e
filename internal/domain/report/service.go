package report

import (
	"context"
	"time"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
)

// Service exposes the read-side reports.
type Service struct {
	repo Repository
}

// NewService creates the report service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Stock returns the valued positions of one account.
func (s *Service) Stock(ctx context.Context, accountID id.ID) ([]StockRow, error) {
	return s.repo.StockByAccount(ctx, accountID)
}

// StockTotal returns system-wide stock summed across accounts.
func (s *Service) StockTotal(ctx context.Context) ([]StockRow, error) {
	return s.repo.StockTotal(ctx)
}

// Balances returns debt and pending for every active account.
func (s *Service) Balances(ctx context.Context) ([]BalanceRow, error) {
	return s.repo.Balances(ctx)
}

// Sales aggregates sales over [from, to). The repository leaves
// RevenueMajor unset; it is derived here so every caller gets the
// display amount for free.
func (s *Service) Sales(ctx context.Context, accountID *id.ID, from, to time.Time) (SalesSummary, error) {
	if !to.After(from) {
		return SalesSummary{}, apperror.NewValidation("report period end must be after start")
	}
	sum, err := s.repo.Sales(ctx, accountID, from, to)
	if err != nil {
		return SalesSummary{}, err
	}
	sum.From = from
	sum.To = to
	sum.RevenueMajor = sum.Revenue.Major()
	return sum, nil
}
