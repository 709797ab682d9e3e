// Package report_repo runs the aggregate queries behind the read-only
// reports. Raw SQL rather than the builder: these are joins and
// aggregations squirrel only obscures.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"fructus/internal/core/id"
	"fructus/internal/domain/report"
	"fructus/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ report.Repository = (*ReportRepo)(nil)

// ReportRepo implements report.Repository.
type ReportRepo struct {
	txm *postgres.TxManager
}

// NewReportRepo creates a report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txm: txm}
}

// StockByAccount returns valued positions of one account.
func (r *ReportRepo) StockByAccount(ctx context.Context, accountID id.ID) ([]report.StockRow, error) {
	sql := `
		SELECT p.id AS product_id,
		       p.name AS product_name,
		       ip.quantity,
		       p.price AS unit_price,
		       ip.quantity * p.price AS value
		FROM inventory_positions ip
		JOIN products p ON p.id = ip.product_id
		WHERE ip.account_id = $1
		  AND ip.quantity > 0
		ORDER BY p.name
	`
	var rows []report.StockRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, accountID); err != nil {
		return nil, fmt.Errorf("select account stock: %w", err)
	}
	return rows, nil
}

// StockTotal returns system-wide positions summed over all accounts.
func (r *ReportRepo) StockTotal(ctx context.Context) ([]report.StockRow, error) {
	sql := `
		SELECT p.id AS product_id,
		       p.name AS product_name,
		       COALESCE(SUM(ip.quantity), 0) AS quantity,
		       p.price AS unit_price,
		       COALESCE(SUM(ip.quantity), 0) * p.price AS value
		FROM products p
		LEFT JOIN inventory_positions ip ON ip.product_id = p.id
		WHERE p.is_active
		GROUP BY p.id, p.name, p.price
		ORDER BY p.name
	`
	var rows []report.StockRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql); err != nil {
		return nil, fmt.Errorf("select total stock: %w", err)
	}
	return rows, nil
}

// Balances returns debt and pending for all active accounts, including
// those that never had a balance row yet.
func (r *ReportRepo) Balances(ctx context.Context) ([]report.BalanceRow, error) {
	sql := `
		SELECT a.id AS account_id,
		       a.code AS account_code,
		       a.name AS account_name,
		       COALESCE(b.debt, 0) AS debt,
		       COALESCE(b.pending, 0) AS pending
		FROM accounts a
		LEFT JOIN account_balances b ON b.account_id = a.id
		WHERE a.is_active
		ORDER BY a.code
	`
	var rows []report.BalanceRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return rows, nil
}

// Sales aggregates the sale log over [from, to).
func (r *ReportRepo) Sales(ctx context.Context, accountID *id.ID, from, to time.Time) (report.SalesSummary, error) {
	querier := r.txm.GetQuerier(ctx)

	totalSQL := `
		SELECT COUNT(*) AS count,
		       COALESCE(SUM(quantity), 0) AS quantity,
		       COALESCE(SUM(amount), 0) AS revenue
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		  AND ($3::uuid IS NULL OR account_id = $3)
	`
	var summary report.SalesSummary
	row := querier.QueryRow(ctx, totalSQL, from, to, accountID)
	if err := row.Scan(&summary.Count, &summary.Quantity, &summary.Revenue); err != nil {
		return summary, fmt.Errorf("aggregate sales: %w", err)
	}

	perProductSQL := `
		SELECT s.product_id,
		       p.name AS product_name,
		       SUM(s.quantity) AS quantity,
		       SUM(s.amount) AS revenue
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		  AND ($3::uuid IS NULL OR s.account_id = $3)
		GROUP BY s.product_id, p.name
		ORDER BY revenue DESC
	`
	if err := pgxscan.Select(ctx, querier, &summary.PerProduct, perProductSQL, from, to, accountID); err != nil {
		return summary, fmt.Errorf("aggregate sales per product: %w", err)
	}
	return summary, nil
}
