package supply

import (
	"context"
	"fmt"
	"sort"
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

// Service drives the supply order lifecycle on top of the ledger engine.
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

// NewService creates the supply order service.
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

// Create opens a new order. Current catalog prices are frozen into the
// lines; no stock moves until Ship. Availability at this point is
// informational only and deliberately not checked.
func (s *Service) Create(ctx context.Context, accountID id.ID, lines []NewLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, apperror.NewEmptyCart()
	}

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acc.IsActive {
		return nil, apperror.NewForbidden("account is blocked")
	}

	order := &Order{
		ID:        id.New(),
		AccountID: accountID,
		Status:    StatusNew,
		CreatedAt: time.Now().UTC(),
	}

	for i, nl := range lines {
		if !nl.Quantity.IsPositive() {
			return nil, apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
		price := nl.UnitPrice
		if price == 0 {
			p, err := s.products.GetByID(ctx, nl.ProductID)
			if err != nil {
				return nil, err
			}
			if !p.IsActive {
				return nil, apperror.NewValidation("product is not available").
					WithDetail("product_id", p.ID.String())
			}
			price = p.Price
		}
		order.Lines = append(order.Lines, Line{
			ID:              id.New(),
			OrderID:         order.ID,
			LineNo:          i + 1,
			ProductID:       nl.ProductID,
			QuantityOrdered: nl.Quantity,
			UnitPrice:       price,
		})
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.Next(ctx, numerator.PrefixSupplyOrder, acc.Code, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("number order: %w", err)
		}
		order.Number = number

		if err := s.repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "supply_order",
			EntityID:   order.ID,
			Action:     audit.ActionCreate,
			Actor:      acc.Code,
			Changes:    order,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "supply order created", "number", order.Number, "account", acc.Code, "lines", len(order.Lines))
	event.Emit(ctx, s.notifier, event.New(event.TypeOrderCreated, order.AccountID, orderPayload(order)))
	return order, nil
}

// Ship moves every ordered line from the central account to the
// requesting account at the frozen line prices. Availability is
// re-validated under row locks at commit time; any short line aborts
// the whole order with the concrete shortage reported.
func (s *Service) Ship(ctx context.Context, orderID id.ID) (*Order, error) {
	central, err := s.accounts.GetCentral(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve central account: %w", err)
	}

	var order *Order
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.guardTransition(StatusShipped); err != nil {
			return err
		}

		// Deterministic lock order across concurrent ships.
		lines := make([]Line, len(order.Lines))
		copy(lines, order.Lines)
		sort.Slice(lines, func(i, j int) bool {
			return lines[i].ProductID.String() < lines[j].ProductID.String()
		})

		centralID := central.ID
		for _, line := range lines {
			if _, err := s.ledger.Transfer(ctx, ledger.TransferParams{
				From:      &centralID,
				To:        order.AccountID,
				ProductID: line.ProductID,
				Quantity:  line.QuantityOrdered,
				UnitPrice: line.UnitPrice,
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		order.Status = StatusShipped
		order.ShippedAt = &now
		if err := s.repo.UpdateStatus(ctx, order); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "supply_order",
			EntityID:   order.ID,
			Action:     audit.ActionShip,
			Actor:      "admin",
			Changes:    map[string]any{"status": order.Status, "shipped_at": order.ShippedAt},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "supply order shipped", "number", order.Number)
	event.Emit(ctx, s.notifier, event.New(event.TypeOrderShipped, order.AccountID, orderPayload(order)))
	return order, nil
}

// ConfirmReceipt records per-line received quantities and completes the
// order. Stock was already credited at ship time; receipt only
// reconciles quantities. When a line is short and reorderShortage is
// set, a fresh order for the deficit is opened at the same frozen
// prices.
func (s *Service) ConfirmReceipt(ctx context.Context, orderID id.ID, received map[id.ID]types.Quantity, reorderShortage bool) (*Order, *Order, error) {
	var (
		order    *Order
		shortage *Order
	)

	acc := ""
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.guardTransition(StatusCompleted); err != nil {
			return err
		}

		var deficit []NewLine
		for i := range order.Lines {
			line := &order.Lines[i]
			got, ok := received[line.ID]
			if !ok {
				return apperror.NewValidation("received quantity missing for line").
					WithDetail("line_id", line.ID.String())
			}
			if got < 0 || got > line.QuantityOrdered {
				return apperror.NewValidation("received quantity out of range").
					WithDetail("line_id", line.ID.String()).
					WithDetail("ordered", int64(line.QuantityOrdered)).
					WithDetail("received", int64(got))
			}
			if err := s.repo.SetLineReceived(ctx, line.ID, got); err != nil {
				return fmt.Errorf("set line received: %w", err)
			}
			line.QuantityReceived = &got
			if got < line.QuantityOrdered {
				deficit = append(deficit, NewLine{
					ProductID: line.ProductID,
					Quantity:  line.QuantityOrdered - got,
					UnitPrice: line.UnitPrice,
				})
			}
		}

		now := time.Now().UTC()
		order.Status = StatusCompleted
		order.CompletedAt = &now
		if err := s.repo.UpdateStatus(ctx, order); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		a, err := s.accounts.GetByID(ctx, order.AccountID)
		if err != nil {
			return err
		}
		acc = a.Code

		if reorderShortage && len(deficit) > 0 {
			shortage = &Order{
				ID:        id.New(),
				AccountID: order.AccountID,
				Status:    StatusNew,
				CreatedAt: now,
			}
			for i, nl := range deficit {
				shortage.Lines = append(shortage.Lines, Line{
					ID:              id.New(),
					OrderID:         shortage.ID,
					LineNo:          i + 1,
					ProductID:       nl.ProductID,
					QuantityOrdered: nl.Quantity,
					UnitPrice:       nl.UnitPrice,
				})
			}
			number, err := s.numerator.Next(ctx, numerator.PrefixSupplyOrder, a.Code, now)
			if err != nil {
				return fmt.Errorf("number shortage order: %w", err)
			}
			shortage.Number = number
			if err := s.repo.Create(ctx, shortage); err != nil {
				return fmt.Errorf("create shortage order: %w", err)
			}
		}

		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "supply_order",
			EntityID:   order.ID,
			Action:     audit.ActionReceive,
			Actor:      a.Code,
			Changes:    map[string]any{"status": order.Status, "completed_at": order.CompletedAt},
		})
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "supply order completed", "number", order.Number, "account", acc, "shortage_reordered", shortage != nil)
	events := []event.Event{event.New(event.TypeOrderCompleted, order.AccountID, orderPayload(order))}
	if shortage != nil {
		events = append(events, event.New(event.TypeOrderCreated, shortage.AccountID, orderPayload(shortage)))
	}
	event.Emit(ctx, s.notifier, events...)
	return order, shortage, nil
}

// Cancel voids an order that has not shipped. No ledger effect.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) (*Order, error) {
	var order *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.guardTransition(StatusCancelled); err != nil {
			return err
		}
		order.Status = StatusCancelled
		if err := s.repo.UpdateStatus(ctx, order); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "supply_order",
			EntityID:   order.ID,
			Action:     audit.ActionCancel,
			Changes:    map[string]any{"status": order.Status},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "supply order cancelled", "number", order.Number)
	event.Emit(ctx, s.notifier, event.New(event.TypeOrderCancelled, order.AccountID, orderPayload(order)))
	return order, nil
}

// Get returns one order with lines.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	return s.repo.List(ctx, f)
}

func orderPayload(o *Order) event.OrderPayload {
	p := event.OrderPayload{OrderID: o.ID, OrderNumber: o.Number}
	for _, l := range o.Lines {
		p.Lines = append(p.Lines, event.LineView{
			ProductID: l.ProductID,
			Quantity:  l.QuantityOrdered,
			UnitPrice: l.UnitPrice,
		})
	}
	return p
}
