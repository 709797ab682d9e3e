// Package report provides read-only summaries for the operator.
// Reports run without locks and may observe slightly stale data; they
// never drive ledger decisions.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// StockRow is one product position of an account, valued at the
// current catalog price.
type StockRow struct {
	ProductID   id.ID            `db:"product_id" json:"productId"`
	ProductName string           `db:"product_name" json:"productName"`
	Quantity    types.Quantity   `db:"quantity" json:"quantity"`
	UnitPrice   types.MinorUnits `db:"unit_price" json:"unitPrice"`
	Value       types.MinorUnits `db:"value" json:"value"`
}

// BalanceRow summarizes one account's money standing.
type BalanceRow struct {
	AccountID   id.ID            `db:"account_id" json:"accountId"`
	AccountCode string           `db:"account_code" json:"accountCode"`
	AccountName string           `db:"account_name" json:"accountName"`
	Debt        types.MinorUnits `db:"debt" json:"debt"`
	Pending     types.MinorUnits `db:"pending" json:"pending"`
}

// ProductSales is the per-product slice of a sales summary.
type ProductSales struct {
	ProductID   id.ID            `db:"product_id" json:"productId"`
	ProductName string           `db:"product_name" json:"productName"`
	Quantity    types.Quantity   `db:"quantity" json:"quantity"`
	Revenue     types.MinorUnits `db:"revenue" json:"revenue"`
}

// SalesSummary aggregates sales over a period.
type SalesSummary struct {
	From     time.Time        `json:"from"`
	To       time.Time        `json:"to"`
	Count    int64            `json:"count"`
	Quantity types.Quantity   `json:"quantity"`
	Revenue  types.MinorUnits `json:"revenue"`
	// RevenueMajor is the revenue in major currency units, for display.
	RevenueMajor decimal.Decimal `json:"revenueMajor"`
	PerProduct   []ProductSales  `json:"perProduct"`
}
