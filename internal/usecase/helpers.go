package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
)

// activeSession returns the open or paused session.
func activeSession(ctx context.Context, sessions repository.SessionRepository) (*model.WorkSession, error) {
	s, err := sessions.Active(ctx)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrNoActiveSession
		}
		return nil, err
	}
	return s, nil
}

// openSession is like activeSession but refuses a paused shop.
func openSession(ctx context.Context, sessions repository.SessionRepository) (*model.WorkSession, error) {
	s, err := activeSession(ctx, sessions)
	if err != nil {
		return nil, err
	}
	if s.Status != model.SessionOpen {
		return nil, fmt.Errorf("%w: shop paused", domainErrors.ErrNoActiveSession)
	}
	return s, nil
}

func appendMovements(ctx context.Context, ledger repository.LedgerRepository, movements []model.CashMovement) error {
	for _, m := range movements {
		if _, err := ledger.Append(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

type orderEventPayload struct {
	OrderID   int64             `json:"order_id,omitempty"`
	Number    string            `json:"number,omitempty"`
	Origin    model.Origin      `json:"origin"`
	PendingID string            `json:"pending_id"`
	Status    model.OrderStatus `json:"status,omitempty"`
	Previous  model.OrderStatus `json:"previous_status,omitempty"`
	Total     string            `json:"total,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	ActorID   int64             `json:"actor_id,omitempty"`
}

func newOrderEvent(typ model.EventType, orderID *int64, payload orderEventPayload, now time.Time) (model.OrderEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.OrderEvent{}, fmt.Errorf("encode %s event: %w", typ, err)
	}
	return model.OrderEvent{
		Type:      typ,
		OrderID:   orderID,
		PendingID: payload.PendingID,
		Payload:   raw,
		CreatedAt: now,
	}, nil
}

func acceptedEvent(o *model.Order, actorID int64, now time.Time) (model.OrderEvent, error) {
	id := o.ID
	return newOrderEvent(model.EventOrderAccepted, &id, orderEventPayload{
		OrderID:   o.ID,
		Number:    o.Number.String(),
		Origin:    o.Origin,
		PendingID: o.PendingID,
		Status:    o.Status,
		Total:     o.Total.StringFixed(2),
		ActorID:   actorID,
	}, now)
}

func rejectedEvent(p *model.PendingOrder, reason string, actorID int64, now time.Time) (model.OrderEvent, error) {
	return newOrderEvent(model.EventOrderRejected, nil, orderEventPayload{
		Origin:    p.Origin,
		PendingID: p.ID,
		Total:     p.Total().StringFixed(2),
		Reason:    reason,
		ActorID:   actorID,
	}, now)
}
