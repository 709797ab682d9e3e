// Package ledger is the inventory-and-money engine: it owns stock
// positions, debt and pending balances, and the sale log. Every write
// to those rows goes through this package; lifecycle packages call it
// inside their own transactions.
package ledger

import (
	"time"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Position is the stock of one product held by one account.
// Quantity is never negative; the engine enforces it under row locks
// and the schema backs it with a CHECK constraint.
type Position struct {
	AccountID id.ID          `db:"account_id" json:"accountId"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
}

// Balance carries the two money columns of one account.
// Debt is what the account owes the operator for stock on hand,
// valued at transfer-time prices. Pending is what the operator owes
// the account from recorded sales, awaiting payout.
type Balance struct {
	AccountID id.ID            `db:"account_id" json:"accountId"`
	Debt      types.MinorUnits `db:"debt" json:"debt"`
	Pending   types.MinorUnits `db:"pending" json:"pending"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// Sale is an append-only record of a completed sale.
type Sale struct {
	ID        id.ID            `db:"id" json:"id"`
	Number    string           `db:"number" json:"number"`
	AccountID id.ID            `db:"account_id" json:"accountId"`
	ProductID id.ID            `db:"product_id" json:"productId"`
	Quantity  types.Quantity   `db:"quantity" json:"quantity"`
	Amount    types.MinorUnits `db:"amount" json:"amount"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// TransferParams describes one atomic stock movement.
type TransferParams struct {
	// From is nil for restock-into-central: stock entering the system
	// from outside has no source position to debit.
	From      *id.ID
	To        id.ID
	ProductID id.ID
	Quantity  types.Quantity
	// UnitPrice values the movement for debt accounting. The caller
	// supplies it (frozen order price or live catalog price); the
	// ledger never reads the catalog itself.
	UnitPrice types.MinorUnits
}

// TransferResult reports the state after a successful transfer.
type TransferResult struct {
	FromQuantity *types.Quantity  `json:"fromQuantity,omitempty"`
	ToQuantity   types.Quantity   `json:"toQuantity"`
	DebtDelta    types.MinorUnits `json:"debtDelta"`
}

// SaleParams describes one sale to record.
type SaleParams struct {
	AccountID   id.ID
	AccountCode string
	ProductID   id.ID
	Quantity    types.Quantity
	// UnitPrice is the live catalog price at the moment of sale.
	UnitPrice types.MinorUnits
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
