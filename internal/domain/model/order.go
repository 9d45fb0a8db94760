package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
)

// OrderStatus describes kitchen lifecycle of a committed order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDone      OrderStatus = "DONE"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCanceled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCanceled},
	OrderStatusReady:     {OrderStatusDone, OrderStatusCanceled},
}

// ParseOrderStatus accepts a status name in any letter case.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusDone, OrderStatusCanceled:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", domainErrors.ErrValidation, raw)
}

// Terminal reports whether no further transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDone || s == OrderStatusCanceled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderNumber is the customer facing sequential order number.
type OrderNumber int64

// String renders the number zero padded to four digits.
func (n OrderNumber) String() string {
	return fmt.Sprintf("%04d", int64(n))
}

// ParseOrderNumber parses a rendered order number.
func ParseOrderNumber(raw string) (OrderNumber, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid order number %q", domainErrors.ErrValidation, raw)
	}
	return OrderNumber(v), nil
}

// Order is a committed order produced by accepting a pending order.
type Order struct {
	ID           int64           `json:"id"`
	Number       OrderNumber     `json:"number"`
	Origin       Origin          `json:"origin"`
	PendingID    string          `json:"pending_id"`
	SessionID    int64           `json:"session_id"`
	TableRef     string          `json:"table_ref,omitempty"`
	CustomerID   *int64          `json:"customer_id,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Status       OrderStatus     `json:"status"`
	Items        []LineItem      `json:"items"`
	Payments     []PaymentEntry  `json:"payments,omitempty"`
	Total        decimal.Decimal `json:"total"`
	CreatedBy    int64           `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewOrder materializes a committed order from an accepted pending order.
// Kiosk payments are carried over; table orders are paid later at the till.
func NewOrder(number OrderNumber, pending PendingOrder, sessionID, actorID int64, now time.Time) (*Order, error) {
	if number <= 0 {
		return nil, fmt.Errorf("%w: order number must be positive", domainErrors.ErrValidation)
	}
	if len(pending.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", domainErrors.ErrValidation)
	}
	for _, it := range pending.Items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
	}

	order := &Order{
		Number:       number,
		Origin:       pending.Origin,
		PendingID:    pending.ID,
		SessionID:    sessionID,
		TableRef:     pending.TableRef,
		CustomerID:   cloneID(pending.CustomerID),
		CustomerName: pending.CustomerName,
		Status:       OrderStatusPending,
		Items:        cloneItems(pending.Items),
		Total:        ItemsTotal(pending.Items),
		CreatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if pending.Origin == OriginKiosk {
		order.Payments = make([]PaymentEntry, len(pending.Payments))
		for i, p := range pending.Payments {
			p.SessionID = sessionID
			order.Payments[i] = p
		}
	}
	return order, nil
}

// CheckPayments verifies that recorded payments cover the total exactly.
// Table orders with no payments yet are not checked.
func (o *Order) CheckPayments() error {
	if o.Origin == OriginTable && len(o.Payments) == 0 {
		return nil
	}
	return checkSettlement(o.Total, o.Payments)
}

// Settle attaches payments to an unpaid order.
func (o *Order) Settle(payments []PaymentEntry, sessionID int64, now time.Time) error {
	if o.Status == OrderStatusCanceled {
		return fmt.Errorf("%w: order %s is canceled", domainErrors.ErrInvalidTransition, o.Number)
	}
	if o.Paid() {
		return fmt.Errorf("%w: order %s is already paid", domainErrors.ErrInvalidTransition, o.Number)
	}
	if err := checkSettlement(o.Total, payments); err != nil {
		return err
	}
	o.Payments = make([]PaymentEntry, len(payments))
	for i, p := range payments {
		p.SessionID = sessionID
		o.Payments[i] = p
	}
	o.UpdatedAt = now
	return nil
}

// Paid reports whether payments are attached.
func (o *Order) Paid() bool {
	return len(o.Payments) > 0
}

// TransitionTo moves the order along the status graph.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: order %s cannot move from %s to %s", domainErrors.ErrInvalidTransition, o.Number, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// Payment looks up an attached payment by identifier.
func (o *Order) Payment(id int64) (PaymentEntry, bool) {
	for _, p := range o.Payments {
		if p.ID == id {
			return p, true
		}
	}
	return PaymentEntry{}, false
}

func checkSettlement(total decimal.Decimal, payments []PaymentEntry) error {
	paid := SumPayments(payments)
	if !paid.Equal(total) {
		return fmt.Errorf("%w: paid %s, total %s", domainErrors.ErrPaymentMismatch, paid.StringFixed(2), total.StringFixed(2))
	}
	return nil
}
