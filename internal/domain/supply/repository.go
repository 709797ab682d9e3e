package supply

import (
	"context"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Repository defines persistence for supply orders.
type Repository interface {
	// Create inserts the order and its lines.
	Create(ctx context.Context, o *Order) error

	// GetByID returns the order with lines.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// GetForUpdate returns the order with lines under a row lock; call
	// inside a transaction before a status change so two concurrent
	// ships cannot both pass the guard.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// UpdateStatus writes status and lifecycle timestamps.
	UpdateStatus(ctx context.Context, o *Order) error

	// SetLineReceived stamps quantity_received on one line.
	SetLineReceived(ctx context.Context, lineID id.ID, received types.Quantity) error

	List(ctx context.Context, f Filter) ([]Order, error)
}
