package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
	"github.com/polkiloo/snackbar/internal/numbering"
	"github.com/polkiloo/snackbar/internal/queue"
)

const mismatchReason = "payment mismatch"

// AcceptanceUseCase commits or discards pending orders. A pending order is
// accepted at most once: whoever takes it from its queue owns it.
type AcceptanceUseCase struct {
	repos   repository.Factory
	tx      repository.Transactor
	queues  *queue.Selector
	numbers *numbering.Generator
	logger  *zap.Logger
	now     func() time.Time
}

// NewAcceptanceUseCase constructs AcceptanceUseCase.
func NewAcceptanceUseCase(
	repos repository.Factory,
	tx repository.Transactor,
	queues *queue.Selector,
	numbers *numbering.Generator,
	logger *zap.Logger,
) *AcceptanceUseCase {
	return &AcceptanceUseCase{
		repos:   repos,
		tx:      tx,
		queues:  queues,
		numbers: numbers,
		logger:  logger.Named("acceptance"),
		now:     time.Now,
	}
}

// Accept turns the pending order into a numbered order.
//
// Table entries are taken from memory before numbering starts and put back
// when the commit fails for any reason but a payment mismatch. Kiosk rows are
// taken inside every transaction attempt, so a rollback restores them.
// A payment mismatch consumes the pending order in both cases.
func (u *AcceptanceUseCase) Accept(ctx context.Context, origin model.Origin, pendingID string, actorID int64) (*model.Order, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("%w: unknown origin %q", domainErrors.ErrValidation, origin)
	}

	var pending *model.PendingOrder
	if origin == model.OriginTable {
		p, err := u.queues.Table().TakeAtomically(ctx, pendingID)
		if err != nil {
			return nil, err
		}
		pending = p
	}

	var order *model.Order
	err := u.numbers.Run(ctx, func(ctx context.Context) error {
		return u.tx.WithinTransaction(ctx, func(f repository.Factory) error {
			current := pending
			if origin == model.OriginKiosk {
				p, err := f.KioskQueue().TakeAtomically(ctx, pendingID)
				if err != nil {
					return err
				}
				current = p
			}
			o, err := u.commit(ctx, f, current, actorID)
			if err != nil {
				return err
			}
			order = o
			return nil
		})
	})
	if err == nil {
		u.logger.Info("order accepted",
			zap.String("pending_id", pendingID),
			zap.String("origin", string(origin)),
			zap.String("number", order.Number.String()),
			zap.Int64("actor_id", actorID),
		)
		return order, nil
	}

	switch {
	case errors.Is(err, domainErrors.ErrPaymentMismatch):
		u.logger.Warn("pending order discarded", zap.String("pending_id", pendingID), zap.Error(err))
		u.discardMismatch(ctx, origin, pendingID, pending, actorID)
	case pending != nil:
		if restoreErr := u.queues.Table().Enqueue(context.WithoutCancel(ctx), *pending); restoreErr != nil {
			u.logger.Error("restore table order", zap.String("pending_id", pendingID), zap.Error(restoreErr))
		}
	}
	if errors.Is(err, domainErrors.ErrExhaustedRetries) {
		u.logger.Error("order numbering exhausted", zap.String("pending_id", pendingID), zap.Error(err))
	}
	return nil, err
}

func (u *AcceptanceUseCase) commit(ctx context.Context, f repository.Factory, pending *model.PendingOrder, actorID int64) (*model.Order, error) {
	session, err := activeSession(ctx, f.Sessions())
	if err != nil {
		return nil, err
	}
	orders := f.Orders()
	number, err := u.numbers.Next(ctx, orders)
	if err != nil {
		return nil, err
	}
	now := u.now()
	order, err := model.NewOrder(number, *pending, session.ID, actorID, now)
	if err != nil {
		return nil, err
	}
	if err := order.CheckPayments(); err != nil {
		return nil, err
	}
	if err := orders.Create(ctx, order); err != nil {
		return nil, err
	}

	movements, err := model.PaymentMovements(session.ID, order.ID, order.Number, order.Payments, actorID, now)
	if err != nil {
		return nil, err
	}
	if err := appendMovements(ctx, f.Ledger(), movements); err != nil {
		return nil, err
	}

	event, err := acceptedEvent(order, actorID, now)
	if err != nil {
		return nil, err
	}
	if err := f.Events().Append(ctx, event); err != nil {
		return nil, err
	}
	return order, nil
}

// discardMismatch finishes consuming a pending order whose payments did not
// match. The kiosk row came back with the rollback and is removed here.
func (u *AcceptanceUseCase) discardMismatch(ctx context.Context, origin model.Origin, pendingID string, taken *model.PendingOrder, actorID int64) {
	ctx = context.WithoutCancel(ctx)
	err := u.tx.WithinTransaction(ctx, func(f repository.Factory) error {
		p := taken
		if origin == model.OriginKiosk {
			var err error
			if p, err = f.KioskQueue().TakeAtomically(ctx, pendingID); err != nil {
				return err
			}
		}
		event, err := rejectedEvent(p, mismatchReason, actorID, u.now())
		if err != nil {
			return err
		}
		return f.Events().Append(ctx, event)
	})
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		u.logger.Error("discard pending order", zap.String("pending_id", pendingID), zap.Error(err))
	}
}

// Reject drops a pending order and returns it for auditing. Peek and remove
// are not atomic; a concurrent accept wins and Reject reports ErrNotFound.
func (u *AcceptanceUseCase) Reject(ctx context.Context, origin model.Origin, pendingID string, actorID int64, reason string) (*model.PendingOrder, error) {
	q, err := u.queues.For(origin, u.repos)
	if err != nil {
		return nil, err
	}
	pending, err := q.Peek(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if err := q.Remove(ctx, pendingID); err != nil {
		return nil, err
	}

	event, err := rejectedEvent(pending, reason, actorID, u.now())
	if err == nil {
		err = u.repos.Events().Append(ctx, event)
	}
	if err != nil {
		u.logger.Error("record rejection event", zap.String("pending_id", pendingID), zap.Error(err))
	}

	u.logger.Info("order rejected",
		zap.String("pending_id", pendingID),
		zap.String("origin", string(origin)),
		zap.String("reason", reason),
		zap.Int64("actor_id", actorID),
		zap.Duration("waited", pending.WaitTime(u.now())),
	)
	return pending, nil
}
