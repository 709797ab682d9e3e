// Package catalog_repo provides PostgreSQL implementations for the
// account and product catalogs.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/domain/account"
	"fructus/internal/infrastructure/storage/postgres"
)

const accountsTable = "accounts"

var accountCols = []string{
	"id", "code", "name", "is_central", "is_active",
	"external_id", "created_at", "activated_at",
}

// Compile-time check.
var _ account.Repository = (*AccountRepo)(nil)

// AccountRepo implements account.Repository.
type AccountRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewAccountRepo creates an account repository.
func NewAccountRepo(txm *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *account.Account) error {
	q := r.builder.Insert(accountsTable).
		Columns(accountCols...).
		Values(a.ID, a.Code, a.Name, a.IsCentral, a.IsActive,
			a.ExternalID, a.CreatedAt, a.ActivatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("account", "code", a.Code)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Update rewrites the mutable account fields.
func (r *AccountRepo) Update(ctx context.Context, a *account.Account) error {
	q := r.builder.Update(accountsTable).
		Set("name", a.Name).
		Set("is_active", a.IsActive).
		Set("external_id", a.ExternalID).
		Set("activated_at", a.ActivatedAt).
		Where(squirrel.Eq{"id": a.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("account", a.ID.String())
	}
	return nil
}

// GetByID retrieves an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, accountID id.ID) (*account.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": accountID}, accountID.String())
}

// GetByCode retrieves an account by its short code.
func (r *AccountRepo) GetByCode(ctx context.Context, code string) (*account.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

// GetCentral retrieves the central warehouse account.
func (r *AccountRepo) GetCentral(ctx context.Context) (*account.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"is_central": true}, "central")
}

func (r *AccountRepo) getOne(ctx context.Context, pred any, key string) (*account.Account, error) {
	q := r.builder.Select(accountCols...).
		From(accountsTable).
		Where(pred).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a account.Account
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", key)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// List returns accounts ordered by code.
func (r *AccountRepo) List(ctx context.Context, onlyActive bool) ([]account.Account, error) {
	q := r.builder.Select(accountCols...).
		From(accountsTable).
		OrderBy("code")
	if onlyActive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var accounts []account.Account
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &accounts, sql, args...); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	return accounts, nil
}

// isUniqueViolation reports a 23505 constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
