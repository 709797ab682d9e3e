// Package ledger_repo provides the PostgreSQL implementation of the
// ledger repository: stock positions, account balances, the sale log.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/internal/domain/ledger"
	"fructus/internal/infrastructure/storage/postgres"
)

const (
	positionsTable = "inventory_positions"
	balancesTable  = "account_balances"
	salesTable     = "sales"
)

// Compile-time check.
var _ ledger.Repository = (*LedgerRepo)(nil)

// LedgerRepo implements ledger.Repository. Positions and balances are
// created lazily: reads of absent rows return zero values, and all
// writes are single-statement relative upserts. An absent row cannot
// be locked by FOR UPDATE, so absolute writes computed from an
// unlocked zero read could overwrite a concurrent first insert; the
// delta form lets both writers land their increments.
type LedgerRepo struct {
	txm     postgres.QuerierSource
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates a ledger repository.
func NewLedgerRepo(txm postgres.QuerierSource) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetPositionForUpdate locks and returns a position row. A missing row
// comes back as quantity zero without a lock; callers must mutate via
// AddPosition, never by writing back an absolute value.
func (r *LedgerRepo) GetPositionForUpdate(ctx context.Context, accountID, productID id.ID) (ledger.Position, error) {
	sql := `
		SELECT account_id, product_id, quantity
		FROM inventory_positions
		WHERE account_id = $1 AND product_id = $2
		FOR UPDATE
	`
	var pos ledger.Position
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &pos, sql, accountID, productID); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Position{AccountID: accountID, ProductID: productID}, nil
		}
		return pos, fmt.Errorf("get position for update: %w", err)
	}
	return pos, nil
}

// GetPosition returns a position without locking.
func (r *LedgerRepo) GetPosition(ctx context.Context, accountID, productID id.ID) (ledger.Position, error) {
	q := r.builder.Select("account_id", "product_id", "quantity").
		From(positionsTable).
		Where(squirrel.Eq{"account_id": accountID, "product_id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.Position{}, fmt.Errorf("build query: %w", err)
	}

	var pos ledger.Position
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &pos, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Position{AccountID: accountID, ProductID: productID}, nil
		}
		return pos, fmt.Errorf("get position: %w", err)
	}
	return pos, nil
}

// AddPosition atomically applies a quantity delta and returns the
// resulting quantity. When two transactions race on a row that does
// not exist yet, the loser's INSERT turns into an UPDATE that adds its
// delta to the committed row instead of overwriting it.
func (r *LedgerRepo) AddPosition(ctx context.Context, accountID, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	sql := `
		INSERT INTO inventory_positions (account_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, product_id)
		DO UPDATE SET quantity = inventory_positions.quantity + EXCLUDED.quantity,
		              updated_at = EXCLUDED.updated_at
		RETURNING quantity
	`
	var quantity types.Quantity
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, accountID, productID, delta, time.Now().UTC()).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("add position delta: %w", err)
	}
	return quantity, nil
}

// ListPositions returns the non-zero positions of an account.
func (r *LedgerRepo) ListPositions(ctx context.Context, accountID id.ID) ([]ledger.Position, error) {
	q := r.builder.Select("account_id", "product_id", "quantity").
		From(positionsTable).
		Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.NotEq{"quantity": int64(0)}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var positions []ledger.Position
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &positions, sql, args...); err != nil {
		return nil, fmt.Errorf("select positions: %w", err)
	}
	return positions, nil
}

// GetBalanceForUpdate locks and returns a balance row, zero when absent.
func (r *LedgerRepo) GetBalanceForUpdate(ctx context.Context, accountID id.ID) (ledger.Balance, error) {
	sql := `
		SELECT account_id, debt, pending, updated_at
		FROM account_balances
		WHERE account_id = $1
		FOR UPDATE
	`
	var bal ledger.Balance
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &bal, sql, accountID); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Balance{AccountID: accountID}, nil
		}
		return bal, fmt.Errorf("get balance for update: %w", err)
	}
	return bal, nil
}

// GetBalance returns a balance without locking.
func (r *LedgerRepo) GetBalance(ctx context.Context, accountID id.ID) (ledger.Balance, error) {
	q := r.builder.Select("account_id", "debt", "pending", "updated_at").
		From(balancesTable).
		Where(squirrel.Eq{"account_id": accountID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("build query: %w", err)
	}

	var bal ledger.Balance
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &bal, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Balance{AccountID: accountID}, nil
		}
		return bal, fmt.Errorf("get balance: %w", err)
	}
	return bal, nil
}

// AddBalance atomically applies debt and pending deltas and returns
// the resulting balance. Same relative-upsert shape as AddPosition so
// a concurrent first write to an account's balance row cannot lose
// money.
func (r *LedgerRepo) AddBalance(ctx context.Context, accountID id.ID, debtDelta, pendingDelta types.MinorUnits) (ledger.Balance, error) {
	sql := `
		INSERT INTO account_balances (account_id, debt, pending, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id)
		DO UPDATE SET debt = account_balances.debt + EXCLUDED.debt,
		              pending = account_balances.pending + EXCLUDED.pending,
		              updated_at = EXCLUDED.updated_at
		RETURNING debt, pending, updated_at
	`
	bal := ledger.Balance{AccountID: accountID}
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, accountID, debtDelta, pendingDelta, time.Now().UTC()).
		Scan(&bal.Debt, &bal.Pending, &bal.UpdatedAt)
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("add balance deltas: %w", err)
	}
	return bal, nil
}

// CreateSale appends a sale record.
func (r *LedgerRepo) CreateSale(ctx context.Context, s *ledger.Sale) error {
	q := r.builder.Insert(salesTable).
		Columns("id", "number", "account_id", "product_id", "quantity", "amount", "created_at").
		Values(s.ID, s.Number, s.AccountID, s.ProductID, s.Quantity, s.Amount, s.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// ListSales returns the sale log of an account, newest first.
func (r *LedgerRepo) ListSales(ctx context.Context, accountID id.ID, filter ledger.SaleFilter) ([]ledger.Sale, error) {
	q := r.builder.Select("id", "number", "account_id", "product_id", "quantity", "amount", "created_at").
		From(salesTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at DESC")

	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.To})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sales []ledger.Sale
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &sales, sql, args...); err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}
	return sales, nil
}
