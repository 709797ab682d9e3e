// Package supply implements the supply order lifecycle: a reseller's
// request to draw stock from the central warehouse.
package supply

import (
	"time"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Status of a supply order.
type Status string

const (
	StatusNew       Status = "new"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Order is a supply order with its lines.
type Order struct {
	ID          id.ID      `db:"id" json:"id"`
	Number      string     `db:"number" json:"number"`
	AccountID   id.ID      `db:"account_id" json:"accountId"`
	Status      Status     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	ShippedAt   *time.Time `db:"shipped_at" json:"shippedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one product row of an order. UnitPrice is frozen at order
// creation so later catalog price changes never touch history.
// QuantityReceived stays nil until the seller confirms receipt.
type Line struct {
	ID               id.ID           `db:"id" json:"id"`
	OrderID          id.ID           `db:"order_id" json:"orderId"`
	LineNo           int             `db:"line_no" json:"lineNo"`
	ProductID        id.ID           `db:"product_id" json:"productId"`
	QuantityOrdered  types.Quantity  `db:"quantity_ordered" json:"quantityOrdered"`
	QuantityReceived *types.Quantity `db:"quantity_received" json:"quantityReceived,omitempty"`
	UnitPrice        types.MinorUnits `db:"unit_price" json:"unitPrice"`
}

// NewLine is the caller's input for one order line.
type NewLine struct {
	ProductID id.ID
	Quantity  types.Quantity
	// UnitPrice is optional; when zero the service snapshots the
	// current catalog price. Shortage re-orders pass the frozen price.
	UnitPrice types.MinorUnits
}

// guardTransition returns a typed error unless the move is legal.
// new -> shipped -> completed, or new -> cancelled.
func (o *Order) guardTransition(to Status) error {
	ok := false
	switch to {
	case StatusShipped:
		ok = o.Status == StatusNew
	case StatusCompleted:
		ok = o.Status == StatusShipped
	case StatusCancelled:
		ok = o.Status == StatusNew
	}
	if !ok {
		return apperror.NewInvalidStateTransition("supply order", string(o.Status), string(to))
	}
	return nil
}

// Filter narrows order listings.
type Filter struct {
	AccountID *id.ID
	Status    *Status
	Limit     int
}
