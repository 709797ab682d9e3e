package report

import (
	"context"
	"time"

	"fructus/internal/core/id"
)

// Repository runs the aggregate queries behind the reports.
type Repository interface {
	// StockByAccount returns the positions of one account joined with
	// the catalog. Zero positions are omitted.
	StockByAccount(ctx context.Context, accountID id.ID) ([]StockRow, error)
	// StockTotal returns system-wide positions summed over all accounts.
	StockTotal(ctx context.Context) ([]StockRow, error)
	// Balances returns the money standing of all active accounts.
	Balances(ctx context.Context) ([]BalanceRow, error)
	// Sales aggregates the sale log over [from, to). A nil accountID
	// spans all accounts.
	Sales(ctx context.Context, accountID *id.ID, from, to time.Time) (SalesSummary, error)
}
