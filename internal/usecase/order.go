package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
)

// OrderUseCase encapsulates the lifecycle of committed orders.
type OrderUseCase struct {
	repos  repository.Factory
	tx     repository.Transactor
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(repos repository.Factory, tx repository.Transactor, logger *zap.Logger) *OrderUseCase {
	return &OrderUseCase{repos: repos, tx: tx, logger: logger.Named("orders"), now: time.Now}
}

// Get returns a committed order with items and payments.
func (u *OrderUseCase) Get(ctx context.Context, id int64) (*model.Order, error) {
	return u.repos.Orders().GetByID(ctx, id)
}

// List returns orders in any of statuses ordered by number. No statuses means
// every order still in the kitchen.
func (u *OrderUseCase) List(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	if len(statuses) == 0 {
		statuses = []model.OrderStatus{model.OrderStatusPending, model.OrderStatusPreparing, model.OrderStatusReady}
	}
	return u.repos.Orders().ListByStatus(ctx, statuses)
}

// UpdateStatus moves the order one step along its status graph.
func (u *OrderUseCase) UpdateStatus(ctx context.Context, id int64, next model.OrderStatus, actorID int64) (*model.Order, error) {
	var order *model.Order
	err := u.tx.WithinTransaction(ctx, func(f repository.Factory) error {
		o, err := f.Orders().GetByID(ctx, id)
		if err != nil {
			return err
		}
		prev := o.Status
		now := u.now()
		if err := o.TransitionTo(next, now); err != nil {
			return err
		}
		if err := f.Orders().UpdateStatus(ctx, id, prev, next); err != nil {
			return err
		}
		oid := o.ID
		event, err := newOrderEvent(model.EventOrderStatusChanged, &oid, orderEventPayload{
			OrderID:   o.ID,
			Number:    o.Number.String(),
			Origin:    o.Origin,
			PendingID: o.PendingID,
			Status:    next,
			Previous:  prev,
			ActorID:   actorID,
		}, now)
		if err != nil {
			return err
		}
		if err := f.Events().Append(ctx, event); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info("order status changed",
		zap.String("number", order.Number.String()),
		zap.String("status", string(next)),
		zap.Int64("actor_id", actorID),
	)
	return order, nil
}

// Settle records the payments of a table order at the till.
func (u *OrderUseCase) Settle(ctx context.Context, id int64, payments []PaymentRequest, actorID int64) (*model.Order, error) {
	if len(payments) == 0 {
		return nil, fmt.Errorf("%w: no payments given", domainErrors.ErrValidation)
	}
	entries := make([]model.PaymentEntry, len(payments))
	for i, p := range payments {
		entry, err := model.NewPaymentEntry(p.Method, p.Amount, p.Tendered)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
	}

	var order *model.Order
	err := u.tx.WithinTransaction(ctx, func(f repository.Factory) error {
		session, err := activeSession(ctx, f.Sessions())
		if err != nil {
			return err
		}
		o, err := f.Orders().GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := u.now()
		if err := o.Settle(entries, session.ID, now); err != nil {
			return err
		}
		stored, err := f.Orders().AddPayments(ctx, o.ID, o.Payments)
		if err != nil {
			return err
		}
		o.Payments = stored
		movements, err := model.PaymentMovements(session.ID, o.ID, o.Number, stored, actorID, now)
		if err != nil {
			return err
		}
		if err := appendMovements(ctx, f.Ledger(), movements); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info("order settled",
		zap.String("number", order.Number.String()),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int64("actor_id", actorID),
	)
	return order, nil
}

// CorrectTendered fixes the cash actually handed over for the order's cash
// payment. The total is unchanged; the change difference is booked as a new
// CHANGE_CASH movement.
func (u *OrderUseCase) CorrectTendered(ctx context.Context, id int64, tendered decimal.Decimal, actorID int64) (*model.Order, error) {
	var order *model.Order
	err := u.tx.WithinTransaction(ctx, func(f repository.Factory) error {
		o, err := f.Orders().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == model.OrderStatusCanceled {
			return fmt.Errorf("%w: order %s is canceled", domainErrors.ErrInvalidTransition, o.Number)
		}
		idx := -1
		for i, p := range o.Payments {
			if p.Method == model.PaymentCash {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: order %s has no cash payment", domainErrors.ErrValidation, o.Number)
		}
		current := o.Payments[idx]

		session, err := f.Sessions().GetByID(ctx, current.SessionID)
		if err != nil {
			return err
		}
		if session.Status == model.SessionClosed {
			return fmt.Errorf("%w: session %d is closed", domainErrors.ErrInvalidTransition, session.ID)
		}

		updated, err := current.WithTendered(tendered)
		if err != nil {
			return err
		}
		delta := updated.Change.Sub(current.Change)
		if delta.IsZero() {
			order = o
			return nil
		}
		if err := f.Orders().UpdatePaymentTender(ctx, updated); err != nil {
			return err
		}
		oid := o.ID
		movement, err := model.NewCompensation(session.ID, model.MovementChangeCash, delta.Neg(), &oid,
			"tendered correction "+o.Number.String(), actorID, u.now())
		if err != nil {
			return err
		}
		if _, err := f.Ledger().Append(ctx, movement); err != nil {
			return err
		}
		o.Payments[idx] = updated
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info("tendered amount corrected",
		zap.String("number", order.Number.String()),
		zap.String("tendered", tendered.StringFixed(2)),
		zap.Int64("actor_id", actorID),
	)
	return order, nil
}
