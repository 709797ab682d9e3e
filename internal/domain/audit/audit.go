// Package audit defines the operation audit trail contract.
// The postgres implementation stores entries in the same transaction
// as the operation they describe.
package audit

import (
	"context"

	"fructus/internal/core/id"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionShip    Action = "ship"
	ActionReceive Action = "receive"
	ActionCancel  Action = "cancel"
	ActionFulfill Action = "fulfill"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionSale    Action = "sale"
	ActionUpdate  Action = "update"
)

// Entry is one audit record.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	// Actor is the role or account code of the caller.
	Actor string
	// Changes is serialized to JSON by the store.
	Changes any
}

// Recorder appends audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Record appends an entry if a recorder is configured. Audit failures
// inside a transaction abort the operation: a ledger mutation without
// its trail is worse than a rejected request.
func Record(ctx context.Context, r Recorder, e Entry) error {
	if r == nil {
		return nil
	}
	return r.Record(ctx, e)
}
