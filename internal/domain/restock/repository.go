package restock

import (
	"context"
	"time"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Repository defines persistence for restock requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, requestID id.ID) (*Request, error)
	GetForUpdate(ctx context.Context, requestID id.ID) (*Request, error)
	UpdateStatus(ctx context.Context, r *Request) error
	List(ctx context.Context, f Filter) ([]Request, error)

	// ListPendingLinesForUpdate returns, under row locks, the lines of
	// pending requests for one product ordered by request creation time
	// ascending - the FIFO order the allocator walks.
	ListPendingLinesForUpdate(ctx context.Context, productID id.ID) ([]PendingLine, error)

	// AddLineReceived accumulates an allocation onto one line.
	AddLineReceived(ctx context.Context, lineID id.ID, take types.Quantity) error

	// CompleteIfFilled marks the request completed when every line has
	// received its full quantity. Reports whether it transitioned.
	CompleteIfFilled(ctx context.Context, requestID id.ID, at time.Time) (bool, error)

	// AppendHistory records procured stock for audit.
	AppendHistory(ctx context.Context, e *HistoryEntry) error
	ListHistory(ctx context.Context, productID *id.ID, limit int) ([]HistoryEntry, error)
}
