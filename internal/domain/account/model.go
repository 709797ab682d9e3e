// Package account provides the account catalog: the resellers plus the
// single designated central-warehouse account.
package account

import (
	"context"
	"strings"
	"time"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
)

// Account represents a reseller or the central warehouse.
type Account struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// IsCentral marks the single warehouse account other accounts draw
	// stock from and restock into. Exactly one account carries it.
	IsCentral bool `db:"is_central" json:"isCentral"`

	IsActive bool `db:"is_active" json:"isActive"`

	// ExternalID links the account to its messenger identity.
	// Owned by the onboarding collaborator.
	ExternalID *int64 `db:"external_id" json:"externalId,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	ActivatedAt *time.Time `db:"activated_at" json:"activatedAt,omitempty"`
}

// New creates an active reseller account.
func New(code, name string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:          id.New(),
		Code:        strings.ToUpper(strings.TrimSpace(code)),
		Name:        strings.TrimSpace(name),
		IsActive:    true,
		CreatedAt:   now,
		ActivatedAt: &now,
	}
}

// Validate checks catalog invariants.
func (a *Account) Validate(ctx context.Context) error {
	if a.Code == "" {
		return apperror.NewValidation("account code is required").WithDetail("field", "code")
	}
	if len(a.Code) > 8 {
		return apperror.NewValidation("account code is too long").WithDetail("field", "code")
	}
	if a.Name == "" {
		return apperror.NewValidation("account name is required").WithDetail("field", "name")
	}
	return nil
}
