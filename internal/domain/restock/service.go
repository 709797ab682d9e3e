package restock

import (
	"context"
	"fmt"
	"time"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/tx"
	"fructus/internal/core/types"
	"fructus/internal/domain/account"
	"fructus/internal/domain/audit"
	"fructus/internal/domain/event"
	"fructus/internal/domain/ledger"
	"fructus/internal/domain/product"
	"fructus/pkg/logger"
	"fructus/pkg/numerator"
)

// Service drives the restock request lifecycle and the FIFO
// fulfillment allocator.
type Service struct {
	repo      Repository
	accounts  account.Repository
	products  product.Repository
	ledger    *ledger.Service
	txm       tx.Manager
	numerator *numerator.Service
	notifier  event.Notifier
	audit     audit.Recorder
}

// NewService creates the restock service.
func NewService(
	repo Repository,
	accounts account.Repository,
	products product.Repository,
	ledgerSvc *ledger.Service,
	txm tx.Manager,
	num *numerator.Service,
	notifier event.Notifier,
	auditor audit.Recorder,
) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		products:  products,
		ledger:    ledgerSvc,
		txm:       txm,
		numerator: num,
		notifier:  notifier,
		audit:     auditor,
	}
}

// Create files a restock request. The goods come from external
// procurement, so there is nothing to check availability against.
func (s *Service) Create(ctx context.Context, accountID id.ID, lines []NewLine) (*Request, error) {
	if len(lines) == 0 {
		return nil, apperror.NewEmptyCart()
	}

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	req := &Request{
		ID:        id.New(),
		AccountID: accountID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	for i, nl := range lines {
		if !nl.Quantity.IsPositive() {
			return nil, apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
		req.Lines = append(req.Lines, Line{
			ID:                id.New(),
			RequestID:         req.ID,
			LineNo:            i + 1,
			ProductID:         nl.ProductID,
			QuantityRequested: nl.Quantity,
		})
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.Next(ctx, numerator.PrefixRestockRequest, acc.Code, req.CreatedAt)
		if err != nil {
			return fmt.Errorf("number request: %w", err)
		}
		req.Number = number
		if err := s.repo.Create(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "restock_request",
			EntityID:   req.ID,
			Action:     audit.ActionCreate,
			Actor:      acc.Code,
			Changes:    req,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "restock request created", "number", req.Number, "account", acc.Code)
	event.Emit(ctx, s.notifier, event.New(event.TypeRestockRequested, req.AccountID, restockPayload(req)))
	return req, nil
}

// Fulfill records procured stock for one product. The whole actual
// quantity lands in the central account's position and debt at the
// current product price; the allocator then walks pending lines oldest
// request first. Surplus beyond open requests simply becomes central
// stock.
func (s *Service) Fulfill(ctx context.Context, productID id.ID, actual types.Quantity) (*FulfillResult, error) {
	if !actual.IsPositive() {
		return nil, apperror.NewValidation("fulfill quantity must be positive")
	}

	prod, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	central, err := s.accounts.GetCentral(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve central account: %w", err)
	}

	res := &FulfillResult{
		ProductID: productID,
		Quantity:  actual,
		Allocated: make(map[string]types.Quantity),
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// All of it goes onto the central shelf, allocated or not.
		if _, err := s.ledger.Transfer(ctx, ledger.TransferParams{
			To:        central.ID,
			ProductID: productID,
			Quantity:  actual,
			UnitPrice: prod.Price,
		}); err != nil {
			return err
		}

		lines, err := s.repo.ListPendingLinesForUpdate(ctx, productID)
		if err != nil {
			return fmt.Errorf("list pending lines: %w", err)
		}

		remaining := actual
		touched := make([]id.ID, 0, len(lines))
		seen := make(map[id.ID]bool)
		for _, line := range lines {
			if remaining == 0 {
				break
			}
			take := line.Outstanding()
			if take <= 0 {
				continue
			}
			if take > remaining {
				take = remaining
			}
			if err := s.repo.AddLineReceived(ctx, line.LineID, take); err != nil {
				return fmt.Errorf("allocate to line: %w", err)
			}
			remaining -= take
			res.Allocated[line.RequestNumber] += take
			if !seen[line.RequestID] {
				seen[line.RequestID] = true
				touched = append(touched, line.RequestID)
			}
		}

		now := time.Now().UTC()
		numbers := make(map[id.ID]string, len(lines))
		for _, line := range lines {
			numbers[line.RequestID] = line.RequestNumber
		}
		for _, reqID := range touched {
			done, err := s.repo.CompleteIfFilled(ctx, reqID, now)
			if err != nil {
				return fmt.Errorf("complete request: %w", err)
			}
			if done {
				res.Completed = append(res.Completed, numbers[reqID])
			}
		}

		if err := s.repo.AppendHistory(ctx, &HistoryEntry{
			ID:        id.New(),
			ProductID: productID,
			Quantity:  actual,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "restock_fulfillment",
			EntityID:   productID,
			Action:     audit.ActionFulfill,
			Actor:      "admin",
			Changes:    res,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "restock fulfilled",
		"product", productID,
		"quantity", actual,
		"requests_completed", len(res.Completed),
	)
	event.Emit(ctx, s.notifier, event.New(event.TypeRestockFulfilled, central.ID, event.FulfillmentPayload{
		ProductID: productID,
		Quantity:  actual,
		Allocated: res.Allocated,
	}))
	return res, nil
}

// Cancel voids a pending request. No ledger effect.
func (s *Service) Cancel(ctx context.Context, requestID id.ID) (*Request, error) {
	var req *Request
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := req.guardTransition(StatusCancelled); err != nil {
			return err
		}
		req.Status = StatusCancelled
		if err := s.repo.UpdateStatus(ctx, req); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "restock_request",
			EntityID:   req.ID,
			Action:     audit.ActionCancel,
			Changes:    map[string]any{"status": req.Status},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "restock request cancelled", "number", req.Number)
	return req, nil
}

// Get returns one request with lines.
func (s *Service) Get(ctx context.Context, requestID id.ID) (*Request, error) {
	return s.repo.GetByID(ctx, requestID)
}

// List returns requests matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Request, error) {
	return s.repo.List(ctx, f)
}

// History returns the fulfillment audit trail.
func (s *Service) History(ctx context.Context, productID *id.ID, limit int) ([]HistoryEntry, error) {
	return s.repo.ListHistory(ctx, productID, limit)
}

func restockPayload(r *Request) event.RestockPayload {
	p := event.RestockPayload{RequestID: r.ID, RequestNumber: r.Number}
	for _, l := range r.Lines {
		p.Lines = append(p.Lines, event.LineView{ProductID: l.ProductID, Quantity: l.QuantityRequested})
	}
	return p
}
