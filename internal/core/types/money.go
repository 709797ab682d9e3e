// Package types provides the scalar types shared by the ledger core.
package types

import (
	"github.com/shopspring/decimal"
)

// MinorUnits is a monetary amount in the smallest currency unit.
// All ledger arithmetic is integer arithmetic; floating point never
// touches money.
type MinorUnits int64

// Major returns the amount in major currency units as a decimal.
// Used only for report formatting, never for ledger math.
func (m MinorUnits) Major() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// IsPositive reports whether the amount is strictly positive.
func (m MinorUnits) IsPositive() bool { return m > 0 }

// IsNegative reports whether the amount is strictly negative.
func (m MinorUnits) IsNegative() bool { return m < 0 }

// Quantity is a whole number of stock units (packs). The warehouse
// trades indivisible packs, so no fixed-point scale is needed.
type Quantity int64

// IsPositive reports whether the quantity is strictly positive.
func (q Quantity) IsPositive() bool { return q > 0 }

// Mul values a quantity at a unit price.
func (q Quantity) Mul(price MinorUnits) MinorUnits {
	return MinorUnits(int64(q) * int64(price))
}
