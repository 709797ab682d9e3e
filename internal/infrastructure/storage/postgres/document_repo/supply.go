// Package document_repo provides PostgreSQL implementations for the
// lifecycle documents: supply orders, restock requests, payment
// requests.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/internal/domain/supply"
	"fructus/internal/infrastructure/storage/postgres"
)

const (
	supplyOrdersTable = "supply_orders"
	supplyLinesTable  = "supply_order_lines"
)

var supplyOrderCols = []string{
	"id", "number", "account_id", "status",
	"created_at", "shipped_at", "completed_at",
}

var supplyLineCols = []string{
	"id", "order_id", "line_no", "product_id",
	"quantity_ordered", "quantity_received", "unit_price",
}

// Compile-time check.
var _ supply.Repository = (*SupplyRepo)(nil)

// SupplyRepo implements supply.Repository.
type SupplyRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewSupplyRepo creates a supply order repository.
func NewSupplyRepo(txm *postgres.TxManager) *SupplyRepo {
	return &SupplyRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the order and its lines.
func (r *SupplyRepo) Create(ctx context.Context, o *supply.Order) error {
	q := r.builder.Insert(supplyOrdersTable).
		Columns(supplyOrderCols...).
		Values(o.ID, o.Number, o.AccountID, o.Status,
			o.CreatedAt, o.ShippedAt, o.CompletedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	lq := r.builder.Insert(supplyLinesTable).Columns(supplyLineCols...)
	for _, l := range o.Lines {
		lq = lq.Values(l.ID, l.OrderID, l.LineNo, l.ProductID,
			l.QuantityOrdered, l.QuantityReceived, l.UnitPrice)
	}
	sql, args, err = lq.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

// GetByID returns the order with lines.
func (r *SupplyRepo) GetByID(ctx context.Context, orderID id.ID) (*supply.Order, error) {
	return r.getOrder(ctx, orderID, false)
}

// GetForUpdate returns the order with lines under a row lock.
func (r *SupplyRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*supply.Order, error) {
	return r.getOrder(ctx, orderID, true)
}

func (r *SupplyRepo) getOrder(ctx context.Context, orderID id.ID, lock bool) (*supply.Order, error) {
	q := r.builder.Select(supplyOrderCols...).
		From(supplyOrdersTable).
		Where(squirrel.Eq{"id": orderID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var o supply.Order
	if err := pgxscan.Get(ctx, querier, &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("supply order", orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lsql, largs, err := r.builder.Select(supplyLineCols...).
		From(supplyLinesTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &o.Lines, lsql, largs...); err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	return &o, nil
}

// UpdateStatus writes status and lifecycle timestamps.
func (r *SupplyRepo) UpdateStatus(ctx context.Context, o *supply.Order) error {
	q := r.builder.Update(supplyOrdersTable).
		Set("status", o.Status).
		Set("shipped_at", o.ShippedAt).
		Set("completed_at", o.CompletedAt).
		Where(squirrel.Eq{"id": o.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("supply order", o.ID.String())
	}
	return nil
}

// SetLineReceived stamps quantity_received on one line.
func (r *SupplyRepo) SetLineReceived(ctx context.Context, lineID id.ID, received types.Quantity) error {
	q := r.builder.Update(supplyLinesTable).
		Set("quantity_received", received).
		Where(squirrel.Eq{"id": lineID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update line received: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("supply order line", lineID.String())
	}
	return nil
}

// List returns orders matching the filter, newest first, without lines.
func (r *SupplyRepo) List(ctx context.Context, f supply.Filter) ([]supply.Order, error) {
	q := r.builder.Select(supplyOrderCols...).
		From(supplyOrdersTable).
		OrderBy("created_at DESC")

	if f.AccountID != nil {
		q = q.Where(squirrel.Eq{"account_id": *f.AccountID})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var orders []supply.Order
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return orders, nil
}
