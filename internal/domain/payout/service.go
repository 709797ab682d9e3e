package payout

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
	"fructus/pkg/logger"
	"fructus/pkg/numerator"
)

// Service drives the payment request lifecycle.
type Service struct {
	repo      Repository
	accounts  account.Repository
	ledger    *ledger.Service
	txm       tx.Manager
	numerator *numerator.Service
	notifier  event.Notifier
	audit     audit.Recorder
}

// NewService creates the payout service.
func NewService(
	repo Repository,
	accounts account.Repository,
	ledgerSvc *ledger.Service,
	txm tx.Manager,
	num *numerator.Service,
	notifier event.Notifier,
	auditor audit.Recorder,
) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		ledger:    ledgerSvc,
		txm:       txm,
		numerator: num,
		notifier:  notifier,
		audit:     auditor,
	}
}

// Create files a payment request for part or all of the account's
// pending balance. The bound is checked at creation; approval
// re-validates it under the balance lock.
func (s *Service) Create(ctx context.Context, accountID id.ID, amount types.MinorUnits) (*Request, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive")
	}

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	bal, err := s.ledger.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if amount > bal.Pending {
		return nil, apperror.NewAmountExceedsPending(int64(amount), int64(bal.Pending))
	}

	req := &Request{
		ID:        id.New(),
		AccountID: accountID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.Next(ctx, numerator.PrefixPaymentRequest, acc.Code, req.CreatedAt)
		if err != nil {
			return fmt.Errorf("number request: %w", err)
		}
		req.Number = number
		if err := s.repo.Create(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "payment_request",
			EntityID:   req.ID,
			Action:     audit.ActionCreate,
			Actor:      acc.Code,
			Changes:    req,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment request created", "number", req.Number, "account", acc.Code, "amount", amount)
	event.Emit(ctx, s.notifier, event.New(event.TypePaymentRequested, req.AccountID, event.PaymentPayload{
		RequestID:     req.ID,
		RequestNumber: req.Number,
		Amount:        req.Amount,
	}))
	return req, nil
}

// Approve pays the request out. The admin may override the amount
// downward; whatever applies is re-validated against the live pending
// balance inside the transaction, then deducted from both pending and
// debt.
func (s *Service) Approve(ctx context.Context, requestID id.ID, override *types.MinorUnits) (*Request, error) {
	var req *Request
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := req.guardTransition(StatusApproved); err != nil {
			return err
		}

		applied := req.Amount
		if override != nil {
			// Overrides go downward only; paying out more than the
			// seller asked for must be an explicit new request.
			if *override > req.Amount {
				return apperror.NewValidation("override amount cannot exceed requested amount").
					WithDetail("requested", int64(req.Amount)).
					WithDetail("override", int64(*override))
			}
			applied = *override
		}
		if _, err := s.ledger.ApplyPayout(ctx, req.AccountID, applied); err != nil {
			return err
		}

		now := time.Now().UTC()
		req.Amount = applied
		req.Status = StatusApproved
		req.ApprovedAt = &now
		if err := s.repo.UpdateStatus(ctx, req); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "payment_request",
			EntityID:   req.ID,
			Action:     audit.ActionApprove,
			Actor:      "admin",
			Changes:    map[string]any{"status": req.Status, "applied_amount": applied},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment request approved", "number", req.Number, "amount", req.Amount)
	event.Emit(ctx, s.notifier, event.New(event.TypePaymentApproved, req.AccountID, event.PaymentPayload{
		RequestID:     req.ID,
		RequestNumber: req.Number,
		Amount:        req.Amount,
		AppliedAmount: req.Amount,
	}))
	return req, nil
}

// Reject declines the request. No ledger effect.
func (s *Service) Reject(ctx context.Context, requestID id.ID) (*Request, error) {
	var req *Request
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := req.guardTransition(StatusRejected); err != nil {
			return err
		}
		req.Status = StatusRejected
		if err := s.repo.UpdateStatus(ctx, req); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "payment_request",
			EntityID:   req.ID,
			Action:     audit.ActionReject,
			Actor:      "admin",
			Changes:    map[string]any{"status": req.Status},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment request rejected", "number", req.Number)
	event.Emit(ctx, s.notifier, event.New(event.TypePaymentRejected, req.AccountID, event.PaymentPayload{
		RequestID:     req.ID,
		RequestNumber: req.Number,
		Amount:        req.Amount,
	}))
	return req, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, requestID id.ID) (*Request, error) {
	return s.repo.GetByID(ctx, requestID)
}

// List returns requests matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Request, error) {
	return s.repo.List(ctx, f)
}
