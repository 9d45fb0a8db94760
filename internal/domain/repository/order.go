package repository

import (
	"context"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// OrderRepository describes persistence operations with committed orders.
type OrderRepository interface {
	// MaxNumber returns the highest committed order number, 0 when none.
	MaxNumber(ctx context.Context) (model.OrderNumber, error)
	// Create stores the order with its items and payments and fills IDs.
	// A lost race on the order number yields ErrDuplicateOrderNumber.
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByPendingID(ctx context.Context, pendingID string) (*model.Order, error)
	ListByStatus(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error)
	// UpdateStatus moves the order from one status to another and fails with
	// ErrInvalidTransition when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus) error
	AddPayments(ctx context.Context, orderID int64, payments []model.PaymentEntry) ([]model.PaymentEntry, error)
	UpdatePaymentTender(ctx context.Context, payment model.PaymentEntry) error
}
