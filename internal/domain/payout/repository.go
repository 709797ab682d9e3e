package payout

import (
	"context"

	"fructus/internal/core/id"
)

// Repository defines persistence for payment requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, requestID id.ID) (*Request, error)
	GetForUpdate(ctx context.Context, requestID id.ID) (*Request, error)
	UpdateStatus(ctx context.Context, r *Request) error
	List(ctx context.Context, f Filter) ([]Request, error)
}
