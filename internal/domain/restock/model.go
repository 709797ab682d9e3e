// Package restock implements restock requests: bringing new stock into
// the central warehouse from outside the system (external procurement).
package restock

import (
	"time"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Status of a restock request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Request is a restock request with its lines. Any account may file
// one, including the central account itself; no availability check
// applies because the source is external procurement.
type Request struct {
	ID          id.ID      `db:"id" json:"id"`
	Number      string     `db:"number" json:"number"`
	AccountID   id.ID      `db:"account_id" json:"accountId"`
	Status      Status     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one requested product. QuantityReceived accumulates across
// fulfillments until it reaches QuantityRequested.
type Line struct {
	ID                id.ID          `db:"id" json:"id"`
	RequestID         id.ID          `db:"request_id" json:"requestId"`
	LineNo            int            `db:"line_no" json:"lineNo"`
	ProductID         id.ID          `db:"product_id" json:"productId"`
	QuantityRequested types.Quantity `db:"quantity_requested" json:"quantityRequested"`
	QuantityReceived  types.Quantity `db:"quantity_received" json:"quantityReceived"`
}

// NewLine is the caller's input for one request line.
type NewLine struct {
	ProductID id.ID
	Quantity  types.Quantity
}

// PendingLine is a line of a pending request joined with its request,
// as seen by the FIFO allocator.
type PendingLine struct {
	LineID            id.ID          `db:"line_id"`
	RequestID         id.ID          `db:"request_id"`
	RequestNumber     string         `db:"request_number"`
	AccountID         id.ID          `db:"account_id"`
	QuantityRequested types.Quantity `db:"quantity_requested"`
	QuantityReceived  types.Quantity `db:"quantity_received"`
}

// Outstanding is what the line still waits for.
func (l PendingLine) Outstanding() types.Quantity {
	return l.QuantityRequested - l.QuantityReceived
}

// HistoryEntry is one audit row of stock brought into the warehouse.
type HistoryEntry struct {
	ID        id.ID          `db:"id" json:"id"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// FulfillResult reports one fulfillment.
type FulfillResult struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
	// Allocated maps request numbers to the quantity allocated to them.
	Allocated map[string]types.Quantity `json:"allocated"`
	// Completed lists requests that became fully received.
	Completed []string `json:"completed"`
}

func (r *Request) guardTransition(to Status) error {
	ok := false
	switch to {
	case StatusCompleted, StatusCancelled:
		ok = r.Status == StatusPending
	}
	if !ok {
		return apperror.NewInvalidStateTransition("restock request", string(r.Status), string(to))
	}
	return nil
}

// Filter narrows request listings.
type Filter struct {
	AccountID *id.ID
	Status    *Status
	Limit     int
}
