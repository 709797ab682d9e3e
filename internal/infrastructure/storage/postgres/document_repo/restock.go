package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/internal/domain/restock"
	"fructus/internal/infrastructure/storage/postgres"
)

const (
	restockRequestsTable = "restock_requests"
	restockLinesTable    = "restock_request_lines"
	restockHistoryTable  = "restock_history"
)

var restockRequestCols = []string{
	"id", "number", "account_id", "status", "created_at", "completed_at",
}

var restockLineCols = []string{
	"id", "request_id", "line_no", "product_id",
	"quantity_requested", "quantity_received",
}

// Compile-time check.
var _ restock.Repository = (*RestockRepo)(nil)

// RestockRepo implements restock.Repository.
type RestockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewRestockRepo creates a restock request repository.
func NewRestockRepo(txm *postgres.TxManager) *RestockRepo {
	return &RestockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the request and its lines.
func (r *RestockRepo) Create(ctx context.Context, req *restock.Request) error {
	q := r.builder.Insert(restockRequestsTable).
		Columns(restockRequestCols...).
		Values(req.ID, req.Number, req.AccountID, req.Status,
			req.CreatedAt, req.CompletedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	lq := r.builder.Insert(restockLinesTable).Columns(restockLineCols...)
	for _, l := range req.Lines {
		lq = lq.Values(l.ID, l.RequestID, l.LineNo, l.ProductID,
			l.QuantityRequested, l.QuantityReceived)
	}
	sql, args, err = lq.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert request lines: %w", err)
	}
	return nil
}

// GetByID returns the request with lines.
func (r *RestockRepo) GetByID(ctx context.Context, requestID id.ID) (*restock.Request, error) {
	return r.getRequest(ctx, requestID, false)
}

// GetForUpdate returns the request with lines under a row lock.
func (r *RestockRepo) GetForUpdate(ctx context.Context, requestID id.ID) (*restock.Request, error) {
	return r.getRequest(ctx, requestID, true)
}

func (r *RestockRepo) getRequest(ctx context.Context, requestID id.ID, lock bool) (*restock.Request, error) {
	q := r.builder.Select(restockRequestCols...).
		From(restockRequestsTable).
		Where(squirrel.Eq{"id": requestID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var req restock.Request
	if err := pgxscan.Get(ctx, querier, &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("restock request", requestID.String())
		}
		return nil, fmt.Errorf("get request: %w", err)
	}

	lsql, largs, err := r.builder.Select(restockLineCols...).
		From(restockLinesTable).
		Where(squirrel.Eq{"request_id": requestID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &req.Lines, lsql, largs...); err != nil {
		return nil, fmt.Errorf("select request lines: %w", err)
	}
	return &req, nil
}

// UpdateStatus writes status and the completion timestamp.
func (r *RestockRepo) UpdateStatus(ctx context.Context, req *restock.Request) error {
	q := r.builder.Update(restockRequestsTable).
		Set("status", req.Status).
		Set("completed_at", req.CompletedAt).
		Where(squirrel.Eq{"id": req.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("restock request", req.ID.String())
	}
	return nil
}

// List returns requests matching the filter, newest first, without lines.
func (r *RestockRepo) List(ctx context.Context, f restock.Filter) ([]restock.Request, error) {
	q := r.builder.Select(restockRequestCols...).
		From(restockRequestsTable).
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

	var requests []restock.Request
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &requests, sql, args...); err != nil {
		return nil, fmt.Errorf("select requests: %w", err)
	}
	return requests, nil
}

// ListPendingLinesForUpdate locks and returns the unfilled lines of
// pending requests for one product, oldest request first. The lock
// keeps two concurrent fulfillments from allocating the same line.
func (r *RestockRepo) ListPendingLinesForUpdate(ctx context.Context, productID id.ID) ([]restock.PendingLine, error) {
	sql := `
		SELECT l.id AS line_id,
		       req.id AS request_id,
		       req.number AS request_number,
		       req.account_id,
		       l.quantity_requested,
		       l.quantity_received
		FROM restock_request_lines l
		JOIN restock_requests req ON req.id = l.request_id
		WHERE req.status = 'pending'
		  AND l.product_id = $1
		  AND l.quantity_received < l.quantity_requested
		ORDER BY req.created_at, l.line_no
		FOR UPDATE OF l
	`
	var lines []restock.PendingLine
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, productID); err != nil {
		return nil, fmt.Errorf("select pending lines: %w", err)
	}
	return lines, nil
}

// AddLineReceived accumulates an allocation onto one line.
func (r *RestockRepo) AddLineReceived(ctx context.Context, lineID id.ID, take types.Quantity) error {
	sql := `
		UPDATE restock_request_lines
		SET quantity_received = quantity_received + $2
		WHERE id = $1
	`
	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, lineID, take)
	if err != nil {
		return fmt.Errorf("add line received: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("restock request line", lineID.String())
	}
	return nil
}

// CompleteIfFilled marks the request completed when no line is short.
func (r *RestockRepo) CompleteIfFilled(ctx context.Context, requestID id.ID, at time.Time) (bool, error) {
	sql := `
		UPDATE restock_requests
		SET status = 'completed', completed_at = $2
		WHERE id = $1
		  AND status = 'pending'
		  AND NOT EXISTS (
			SELECT 1 FROM restock_request_lines l
			WHERE l.request_id = $1
			  AND l.quantity_received < l.quantity_requested
		  )
	`
	res, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, requestID, at)
	if err != nil {
		return false, fmt.Errorf("complete request: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// AppendHistory records procured stock.
func (r *RestockRepo) AppendHistory(ctx context.Context, e *restock.HistoryEntry) error {
	q := r.builder.Insert(restockHistoryTable).
		Columns("id", "product_id", "quantity", "created_at").
		Values(e.ID, e.ProductID, e.Quantity, e.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// ListHistory returns procurement history, newest first.
func (r *RestockRepo) ListHistory(ctx context.Context, productID *id.ID, limit int) ([]restock.HistoryEntry, error) {
	q := r.builder.Select("id", "product_id", "quantity", "created_at").
		From(restockHistoryTable).
		OrderBy("created_at DESC")

	if productID != nil {
		q = q.Where(squirrel.Eq{"product_id": *productID})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []restock.HistoryEntry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return entries, nil
}
