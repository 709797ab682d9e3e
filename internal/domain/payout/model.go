// Package payout implements payment requests: a seller asking the
// operator to pay out accumulated pending balance.
package payout

import (
	"time"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
)

// Status of a payment request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is one payment request.
type Request struct {
	ID        id.ID            `db:"id" json:"id"`
	Number    string           `db:"number" json:"number"`
	AccountID id.ID            `db:"account_id" json:"accountId"`
	Amount    types.MinorUnits `db:"amount" json:"amount"`
	Status    Status           `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	ApprovedAt *time.Time      `db:"approved_at" json:"approvedAt,omitempty"`
}

func (r *Request) guardTransition(to Status) error {
	ok := false
	switch to {
	case StatusApproved, StatusRejected:
		ok = r.Status == StatusPending
	}
	if !ok {
		return apperror.NewInvalidStateTransition("payment request", string(r.Status), string(to))
	}
	return nil
}

// Filter narrows request listings.
type Filter struct {
	AccountID *id.ID
	Status    *Status
	Limit     int
}
