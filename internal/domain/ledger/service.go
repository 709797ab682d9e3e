package ledger

import (
	"context"
	"fmt"
	"time"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/tx"
	"fructus/internal/core/types"
	"fructus/internal/domain/audit"
	"fructus/internal/domain/event"
	"fructus/pkg/logger"
	"fructus/pkg/numerator"
)

// Service is the transfer engine plus the accounting rules that hang
// off transfers and sales.
type Service struct {
	repo      Repository
	txm       tx.Manager
	numerator *numerator.Service
	notifier  event.Notifier
	audit     audit.Recorder
}

// NewService creates the ledger service.
func NewService(repo Repository, txm tx.Manager, num *numerator.Service, notifier event.Notifier, auditor audit.Recorder) *Service {
	return &Service{
		repo:      repo,
		txm:       txm,
		numerator: num,
		notifier:  notifier,
		audit:     auditor,
	}
}

// Transfer atomically moves stock and applies the debt delta to the
// receiving account. With a nil From the stock enters the system from
// outside (restock into central) - the central account still "pays"
// for what it procures, so its own debt grows.
//
// When called inside an existing transaction the work joins it; a
// failed line therefore rolls back the whole enclosing operation.
func (s *Service) Transfer(ctx context.Context, p TransferParams) (*TransferResult, error) {
	if !p.Quantity.IsPositive() {
		return nil, apperror.NewValidation("transfer quantity must be positive")
	}
	if p.From != nil && *p.From == p.To {
		return nil, apperror.NewValidation("transfer source and destination must differ")
	}

	var res TransferResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if p.From != nil {
			src, err := s.repo.GetPositionForUpdate(ctx, *p.From, p.ProductID)
			if err != nil {
				return fmt.Errorf("lock source position: %w", err)
			}
			if src.Quantity < p.Quantity {
				return apperror.NewInsufficientStock(
					p.ProductID.String(), int64(p.Quantity), int64(src.Quantity))
			}
			remaining, err := s.repo.AddPosition(ctx, *p.From, p.ProductID, -p.Quantity)
			if err != nil {
				return fmt.Errorf("decrement source position: %w", err)
			}
			res.FromQuantity = &remaining
		}

		// Relative upsert: the destination row may not exist yet and an
		// absent row cannot be locked, so the increment must be atomic.
		toQty, err := s.repo.AddPosition(ctx, p.To, p.ProductID, p.Quantity)
		if err != nil {
			return fmt.Errorf("increment destination position: %w", err)
		}
		res.ToQuantity = toQty

		res.DebtDelta = p.Quantity.Mul(p.UnitPrice)
		if _, err := s.repo.AddBalance(ctx, p.To, res.DebtDelta, 0); err != nil {
			return fmt.Errorf("apply debt delta: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "stock transferred",
		"to", p.To,
		"product", p.ProductID,
		"quantity", p.Quantity,
		"debt_delta", res.DebtDelta,
	)
	return &res, nil
}

// RecordSale depletes the seller's stock and converts its value into
// money owed back: pending grows by the sale amount, debt shrinks by
// the same amount (the cost of now-sold stock leaves what the seller
// owes for inventory on hand). One atomic transaction with the
// inventory decrement.
func (s *Service) RecordSale(ctx context.Context, p SaleParams) (*Sale, error) {
	if !p.Quantity.IsPositive() {
		return nil, apperror.NewValidation("sale quantity must be positive")
	}

	sale := &Sale{
		ID:        id.New(),
		AccountID: p.AccountID,
		ProductID: p.ProductID,
		Quantity:  p.Quantity,
		Amount:    p.Quantity.Mul(p.UnitPrice),
		CreatedAt: time.Now().UTC(),
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		pos, err := s.repo.GetPositionForUpdate(ctx, p.AccountID, p.ProductID)
		if err != nil {
			return fmt.Errorf("lock position: %w", err)
		}
		if pos.Quantity < p.Quantity {
			return apperror.NewInsufficientStock(
				p.ProductID.String(), int64(p.Quantity), int64(pos.Quantity))
		}
		if _, err := s.repo.AddPosition(ctx, p.AccountID, p.ProductID, -p.Quantity); err != nil {
			return fmt.Errorf("decrement position: %w", err)
		}

		// First sale of a seller creates the balance row; the relative
		// upsert keeps concurrent first sales from losing a delta.
		if _, err := s.repo.AddBalance(ctx, p.AccountID, -sale.Amount, sale.Amount); err != nil {
			return fmt.Errorf("apply sale deltas: %w", err)
		}

		number, err := s.numerator.Next(ctx, numerator.PrefixSale, p.AccountCode, sale.CreatedAt)
		if err != nil {
			return fmt.Errorf("number sale: %w", err)
		}
		sale.Number = number

		if err := s.repo.CreateSale(ctx, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "sale",
			EntityID:   sale.ID,
			Action:     audit.ActionSale,
			Actor:      p.AccountCode,
			Changes:    sale,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale recorded",
		"number", sale.Number,
		"account", p.AccountCode,
		"product", p.ProductID,
		"quantity", p.Quantity,
		"amount", sale.Amount,
	)

	event.Emit(ctx, s.notifier, event.New(event.TypeSaleRecorded, p.AccountID, event.SalePayload{
		SaleID:     sale.ID,
		SaleNumber: sale.Number,
		ProductID:  p.ProductID,
		Quantity:   p.Quantity,
		Amount:     sale.Amount,
	}))

	return sale, nil
}

// ApplyPayout deducts an approved payout from the account: pending
// shrinks by the paid amount and so does debt (the payout settles both
// sides, per the current business reading of debt). Validated under
// the balance row lock; joins the caller's transaction.
func (s *Service) ApplyPayout(ctx context.Context, accountID id.ID, amount types.MinorUnits) (Balance, error) {
	if !amount.IsPositive() {
		return Balance{}, apperror.NewValidation("payout amount must be positive")
	}

	var out Balance
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		bal, err := s.repo.GetBalanceForUpdate(ctx, accountID)
		if err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}
		if amount > bal.Pending {
			return apperror.NewAmountExceedsPending(int64(amount), int64(bal.Pending))
		}
		updated, err := s.repo.AddBalance(ctx, accountID, -amount, -amount)
		if err != nil {
			return fmt.Errorf("apply payout deltas: %w", err)
		}
		out = updated
		return nil
	})
	if err != nil {
		return Balance{}, err
	}
	return out, nil
}

// GetPosition returns the current stock of one product for an account.
func (s *Service) GetPosition(ctx context.Context, accountID, productID id.ID) (Position, error) {
	return s.repo.GetPosition(ctx, accountID, productID)
}

// ListPositions returns all positions of an account.
func (s *Service) ListPositions(ctx context.Context, accountID id.ID) ([]Position, error) {
	return s.repo.ListPositions(ctx, accountID)
}

// GetBalance returns the debt and pending amounts of an account.
func (s *Service) GetBalance(ctx context.Context, accountID id.ID) (Balance, error) {
	return s.repo.GetBalance(ctx, accountID)
}

// ListSales returns the sale log of an account.
func (s *Service) ListSales(ctx context.Context, accountID id.ID, filter SaleFilter) ([]Sale, error) {
	return s.repo.ListSales(ctx, accountID, filter)
}
