package ledger

import (
	"context"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Repository defines persistence for positions, balances and sales.
//
// The ForUpdate variants take row locks and must be called inside a
// transaction; they return a zero-quantity row when none exists yet
// (positions and balances are created lazily). Because an absent row
// cannot be locked, all writes are relative: Add methods apply deltas
// atomically in a single statement, so two transactions that both see
// a missing row cannot overwrite each other's first increment.
type Repository interface {
	// Positions

	GetPositionForUpdate(ctx context.Context, accountID, productID id.ID) (Position, error)
	GetPosition(ctx context.Context, accountID, productID id.ID) (Position, error)
	// AddPosition applies a quantity delta, creating the row on first
	// write, and returns the resulting quantity.
	AddPosition(ctx context.Context, accountID, productID id.ID, delta types.Quantity) (types.Quantity, error)
	ListPositions(ctx context.Context, accountID id.ID) ([]Position, error)

	// Balances

	GetBalanceForUpdate(ctx context.Context, accountID id.ID) (Balance, error)
	GetBalance(ctx context.Context, accountID id.ID) (Balance, error)
	// AddBalance applies debt and pending deltas, creating the row on
	// first write, and returns the resulting balance.
	AddBalance(ctx context.Context, accountID id.ID, debtDelta, pendingDelta types.MinorUnits) (Balance, error)

	// Sales

	CreateSale(ctx context.Context, s *Sale) error
	ListSales(ctx context.Context, accountID id.ID, filter SaleFilter) ([]Sale, error)
}
