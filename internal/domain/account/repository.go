package account

import (
	"context"

	"fructus/internal/core/id"
)

// Repository defines persistence for the account catalog.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	Update(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, accountID id.ID) (*Account, error)
	GetByCode(ctx context.Context, code string) (*Account, error)
	// GetCentral returns the single central-warehouse account.
	GetCentral(ctx context.Context) (*Account, error)
	List(ctx context.Context, onlyActive bool) ([]Account, error)
}
