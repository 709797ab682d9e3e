package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/domain/payout"
	"fructus/internal/infrastructure/storage/postgres"
)

const paymentRequestsTable = "payment_requests"

var paymentRequestCols = []string{
	"id", "number", "account_id", "amount", "status",
	"created_at", "approved_at",
}

// Compile-time check.
var _ payout.Repository = (*PayoutRepo)(nil)

// PayoutRepo implements payout.Repository.
type PayoutRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewPayoutRepo creates a payment request repository.
func NewPayoutRepo(txm *postgres.TxManager) *PayoutRepo {
	return &PayoutRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a payment request.
func (r *PayoutRepo) Create(ctx context.Context, req *payout.Request) error {
	q := r.builder.Insert(paymentRequestsTable).
		Columns(paymentRequestCols...).
		Values(req.ID, req.Number, req.AccountID, req.Amount, req.Status,
			req.CreatedAt, req.ApprovedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert payment request: %w", err)
	}
	return nil
}

// GetByID retrieves a payment request.
func (r *PayoutRepo) GetByID(ctx context.Context, requestID id.ID) (*payout.Request, error) {
	return r.getRequest(ctx, requestID, false)
}

// GetForUpdate retrieves a payment request under a row lock.
func (r *PayoutRepo) GetForUpdate(ctx context.Context, requestID id.ID) (*payout.Request, error) {
	return r.getRequest(ctx, requestID, true)
}

func (r *PayoutRepo) getRequest(ctx context.Context, requestID id.ID, lock bool) (*payout.Request, error) {
	q := r.builder.Select(paymentRequestCols...).
		From(paymentRequestsTable).
		Where(squirrel.Eq{"id": requestID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req payout.Request
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("payment request", requestID.String())
		}
		return nil, fmt.Errorf("get payment request: %w", err)
	}
	return &req, nil
}

// UpdateStatus writes amount, status and the approval timestamp.
// Amount is included because approval may apply an admin override.
func (r *PayoutRepo) UpdateStatus(ctx context.Context, req *payout.Request) error {
	q := r.builder.Update(paymentRequestsTable).
		Set("amount", req.Amount).
		Set("status", req.Status).
		Set("approved_at", req.ApprovedAt).
		Where(squirrel.Eq{"id": req.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update payment request: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("payment request", req.ID.String())
	}
	return nil
}

// List returns payment requests matching the filter, newest first.
func (r *PayoutRepo) List(ctx context.Context, f payout.Filter) ([]payout.Request, error) {
	q := r.builder.Select(paymentRequestCols...).
		From(paymentRequestsTable).
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

	var requests []payout.Request
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &requests, sql, args...); err != nil {
		return nil, fmt.Errorf("select payment requests: %w", err)
	}
	return requests, nil
}
