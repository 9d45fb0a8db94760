package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
)

// MovementKind classifies a till movement.
type MovementKind string

const (
	MovementOpen       MovementKind = "OPEN"
	MovementSaleCash   MovementKind = "SALE_CASH"
	MovementChangeCash MovementKind = "CHANGE_CASH"
	MovementWithdrawal MovementKind = "WITHDRAWAL"
	MovementDeposit    MovementKind = "DEPOSIT"
	MovementClose      MovementKind = "CLOSE"
)

// sign of the amount each kind contributes to the drawer.
var movementSign = map[MovementKind]int64{
	MovementOpen:       1,
	MovementSaleCash:   1,
	MovementChangeCash: -1,
	MovementWithdrawal: -1,
	MovementDeposit:    1,
	MovementClose:      1,
}

// CashMovement is an immutable ledger entry. Amount is signed: money leaving
// the drawer is negative.
type CashMovement struct {
	ID          int64           `json:"id"`
	SessionID   int64           `json:"session_id"`
	Kind        MovementKind    `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	OrderID     *int64          `json:"order_id,omitempty"`
	Description string          `json:"description,omitempty"`
	ActorID     int64           `json:"actor_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MovementInput carries the fields of a new ledger entry.
type MovementInput struct {
	SessionID   int64
	Kind        MovementKind
	Magnitude   decimal.Decimal
	OrderID     *int64
	Description string
	ActorID     int64
}

// NewCashMovement builds an entry from a non-negative magnitude, applying the
// sign of its kind. Only OPEN and CLOSE entries may carry zero.
func NewCashMovement(in MovementInput, now time.Time) (CashMovement, error) {
	sign, ok := movementSign[in.Kind]
	if !ok {
		return CashMovement{}, fmt.Errorf("%w: unknown movement kind %q", domainErrors.ErrValidation, in.Kind)
	}
	if in.Magnitude.IsNegative() {
		return CashMovement{}, fmt.Errorf("%w: movement amount must not be negative", domainErrors.ErrValidation)
	}
	if err := checkCents(in.Magnitude, "movement amount"); err != nil {
		return CashMovement{}, err
	}
	if in.Magnitude.IsZero() && in.Kind != MovementOpen && in.Kind != MovementClose {
		return CashMovement{}, fmt.Errorf("%w: %s movement needs a positive amount", domainErrors.ErrValidation, in.Kind)
	}
	return CashMovement{
		SessionID:   in.SessionID,
		Kind:        in.Kind,
		Amount:      in.Magnitude.Mul(decimal.NewFromInt(sign)),
		OrderID:     in.OrderID,
		Description: in.Description,
		ActorID:     in.ActorID,
		CreatedAt:   now,
	}, nil
}

// NewCompensation builds a correcting entry with an explicit signed delta.
// Earlier entries are never rewritten; corrections are appended instead.
func NewCompensation(sessionID int64, kind MovementKind, delta decimal.Decimal, orderID *int64, description string, actorID int64, now time.Time) (CashMovement, error) {
	if kind != MovementSaleCash && kind != MovementChangeCash {
		return CashMovement{}, fmt.Errorf("%w: %s cannot be compensated", domainErrors.ErrValidation, kind)
	}
	if delta.IsZero() {
		return CashMovement{}, fmt.Errorf("%w: compensation delta is zero", domainErrors.ErrValidation)
	}
	if err := checkCents(delta, "compensation delta"); err != nil {
		return CashMovement{}, err
	}
	return CashMovement{
		SessionID:   sessionID,
		Kind:        kind,
		Amount:      delta,
		OrderID:     orderID,
		Description: description,
		ActorID:     actorID,
		CreatedAt:   now,
	}, nil
}

// PaymentMovements derives the SALE_CASH and CHANGE_CASH entries for the cash
// payments of an order. Non-cash tenders never touch the drawer.
func PaymentMovements(sessionID, orderID int64, number OrderNumber, payments []PaymentEntry, actorID int64, now time.Time) ([]CashMovement, error) {
	var out []CashMovement
	for _, p := range payments {
		if p.Method != PaymentCash {
			continue
		}
		id := orderID
		sale, err := NewCashMovement(MovementInput{
			SessionID:   sessionID,
			Kind:        MovementSaleCash,
			Magnitude:   p.Amount,
			OrderID:     &id,
			Description: "sale " + number.String(),
			ActorID:     actorID,
		}, now)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
		if p.Change.IsPositive() {
			change, err := NewCashMovement(MovementInput{
				SessionID:   sessionID,
				Kind:        MovementChangeCash,
				Magnitude:   p.Change,
				OrderID:     &id,
				Description: "change " + number.String(),
				ActorID:     actorID,
			}, now)
			if err != nil {
				return nil, err
			}
			out = append(out, change)
		}
	}
	return out, nil
}
