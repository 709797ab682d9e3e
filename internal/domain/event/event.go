// Package event defines the lifecycle events emitted by the ledger core
// and the gateway they are delivered through.
package event

import (
	"encoding/json"
	"time"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Type names a lifecycle transition.
type Type string

const (
	TypeOrderCreated     Type = "OrderCreated"
	TypeOrderShipped     Type = "OrderShipped"
	TypeOrderCompleted   Type = "OrderCompleted"
	TypeOrderCancelled   Type = "OrderCancelled"
	TypeRestockRequested Type = "RestockRequested"
	TypeRestockFulfilled Type = "RestockFulfilled"
	TypePaymentRequested Type = "PaymentRequested"
	TypePaymentApproved  Type = "PaymentApproved"
	TypePaymentRejected  Type = "PaymentRejected"
	TypeSaleRecorded     Type = "SaleRecorded"
)

// Event is a single lifecycle transition addressed to one account.
// The core performs no user I/O itself; events are handed to the
// Notifier gateway after the owning transaction commits.
type Event struct {
	ID         id.ID     `json:"event_id"`
	Type       Type      `json:"event_type"`
	AccountID  id.ID     `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// New builds an event stamped with a fresh id and UTC time.
func New(t Type, accountID id.ID, payload any) Event {
	return Event{
		ID:         id.New(),
		Type:       t,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Envelope is the wire form of an Event.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	AccountID  string          `json:"account_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

// Wrap serializes an Event into its Envelope.
func Wrap(e Event, producer string) (Envelope, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:    e.ID.String(),
		EventType:  string(e.Type),
		AccountID:  e.AccountID.String(),
		OccurredAt: e.OccurredAt,
		Producer:   producer,
		Payload:    payload,
	}, nil
}

// --- Payloads ---

// LineView describes one order or request line inside a payload.
type LineView struct {
	ProductID id.ID            `json:"product_id"`
	Quantity  types.Quantity   `json:"quantity"`
	UnitPrice types.MinorUnits `json:"unit_price,omitempty"`
}

// OrderPayload accompanies supply order lifecycle events.
type OrderPayload struct {
	OrderID     id.ID      `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	Lines       []LineView `json:"lines,omitempty"`
}

// RestockPayload accompanies restock request lifecycle events.
type RestockPayload struct {
	RequestID     id.ID      `json:"request_id"`
	RequestNumber string     `json:"request_number"`
	Lines         []LineView `json:"lines,omitempty"`
}

// FulfillmentPayload reports a restock fulfillment allocation.
type FulfillmentPayload struct {
	ProductID id.ID          `json:"product_id"`
	Quantity  types.Quantity `json:"quantity"`
	// Allocated maps request numbers to the quantity they received.
	Allocated map[string]types.Quantity `json:"allocated,omitempty"`
}

// PaymentPayload accompanies payment request lifecycle events.
type PaymentPayload struct {
	RequestID     id.ID            `json:"request_id"`
	RequestNumber string           `json:"request_number"`
	Amount        types.MinorUnits `json:"amount"`
	// AppliedAmount is set on approval; it may differ from Amount
	// when the admin overrides it.
	AppliedAmount types.MinorUnits `json:"applied_amount,omitempty"`
}

// SalePayload accompanies SaleRecorded events.
type SalePayload struct {
	SaleID     id.ID            `json:"sale_id"`
	SaleNumber string           `json:"sale_number"`
	ProductID  id.ID            `json:"product_id"`
	Quantity   types.Quantity   `json:"quantity"`
	Amount     types.MinorUnits `json:"amount"`
}
