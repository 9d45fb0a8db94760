package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
	"github.com/polkiloo/snackbar/internal/queue"
)

// ItemRequest is a product line as sent by a customer. Prices come from the
// catalog, never from the client.
type ItemRequest struct {
	ProductID   int64
	Quantity    int
	Notes       string
	AdditionIDs []int64
}

// PaymentRequest declares one tender.
type PaymentRequest struct {
	Method   model.PaymentMethod
	Amount   decimal.Decimal
	Tendered decimal.Decimal
}

// TableSubmission is an order placed from a table QR code.
type TableSubmission struct {
	TableRef     string
	CustomerID   *int64
	CustomerName string
	Items        []ItemRequest
}

// KioskSubmission is a prepaid order placed at the self-service kiosk.
type KioskSubmission struct {
	CustomerID   *int64
	CustomerName string
	Items        []ItemRequest
	Payments     []PaymentRequest
}

// Submission states reported to customers.
const (
	SubmissionWaiting   = "WAITING"
	SubmissionCommitted = "COMMITTED"
)

// SubmissionStatus tells a customer what became of a submission.
type SubmissionStatus struct {
	PendingID string        `json:"pending_id"`
	State     string        `json:"state"`
	WaitTime  time.Duration `json:"wait_time,omitempty"`
	Order     *model.Order  `json:"order,omitempty"`
}

// SubmissionUseCase turns customer requests into pending orders.
type SubmissionUseCase struct {
	repos  repository.Factory
	queues *queue.Selector
	logger *zap.Logger
	now    func() time.Time
}

// NewSubmissionUseCase constructs SubmissionUseCase.
func NewSubmissionUseCase(repos repository.Factory, queues *queue.Selector, logger *zap.Logger) *SubmissionUseCase {
	return &SubmissionUseCase{repos: repos, queues: queues, logger: logger.Named("submission"), now: time.Now}
}

// SubmitTable queues a table order. Payment happens later at the till.
func (u *SubmissionUseCase) SubmitTable(ctx context.Context, in TableSubmission) (*model.PendingOrder, error) {
	tableRef := strings.TrimSpace(in.TableRef)
	if tableRef == "" {
		return nil, fmt.Errorf("%w: table reference is required", domainErrors.ErrValidation)
	}
	if err := checkCustomerID(in.CustomerID); err != nil {
		return nil, err
	}
	pending, err := u.build(ctx, model.OriginTable, in.Items)
	if err != nil {
		return nil, err
	}
	pending.TableRef = tableRef
	pending.CustomerID = in.CustomerID
	pending.CustomerName = strings.TrimSpace(in.CustomerName)
	return u.enqueue(ctx, pending)
}

// SubmitKiosk queues a kiosk order with its declared payments. Whether the
// payments cover the total is checked on acceptance.
func (u *SubmissionUseCase) SubmitKiosk(ctx context.Context, in KioskSubmission) (*model.PendingOrder, error) {
	if len(in.Payments) == 0 {
		return nil, fmt.Errorf("%w: kiosk orders are prepaid", domainErrors.ErrValidation)
	}
	if err := checkCustomerID(in.CustomerID); err != nil {
		return nil, err
	}
	payments := make([]model.PaymentEntry, len(in.Payments))
	for i, p := range in.Payments {
		entry, err := model.NewPaymentEntry(p.Method, p.Amount, p.Tendered)
		if err != nil {
			return nil, err
		}
		payments[i] = entry
	}
	pending, err := u.build(ctx, model.OriginKiosk, in.Items)
	if err != nil {
		return nil, err
	}
	pending.CustomerID = in.CustomerID
	pending.CustomerName = strings.TrimSpace(in.CustomerName)
	pending.Payments = payments
	return u.enqueue(ctx, pending)
}

func checkCustomerID(id *int64) error {
	if id != nil && *id <= 0 {
		return fmt.Errorf("%w: customer id must be positive", domainErrors.ErrValidation)
	}
	return nil
}

func (u *SubmissionUseCase) build(ctx context.Context, origin model.Origin, items []ItemRequest) (*model.PendingOrder, error) {
	if _, err := openSession(ctx, u.repos.Sessions()); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", domainErrors.ErrValidation)
	}

	catalog := u.repos.Catalog()
	lines := make([]model.LineItem, 0, len(items))
	for _, req := range items {
		if req.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity of product %d must be positive", domainErrors.ErrValidation, req.ProductID)
		}
		product, err := availableProduct(ctx, catalog, req.ProductID)
		if err != nil {
			return nil, err
		}
		line := model.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			Notes:     strings.TrimSpace(req.Notes),
		}
		for _, id := range req.AdditionIDs {
			extra, err := availableProduct(ctx, catalog, id)
			if err != nil {
				return nil, err
			}
			line.Additions = append(line.Additions, model.Addition{ProductID: extra.ID, Name: extra.Name, Price: extra.Price})
		}
		lines = append(lines, line)
	}

	return &model.PendingOrder{
		ID:          uuid.NewString(),
		Origin:      origin,
		Items:       lines,
		SubmittedAt: u.now(),
	}, nil
}

func availableProduct(ctx context.Context, catalog repository.CatalogRepository, id int64) (*model.Product, error) {
	product, err := catalog.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown product %d", domainErrors.ErrProductUnavailable, id)
		}
		return nil, err
	}
	if !product.Available {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrProductUnavailable, product.Name)
	}
	return product, nil
}

func (u *SubmissionUseCase) enqueue(ctx context.Context, pending *model.PendingOrder) (*model.PendingOrder, error) {
	q, err := u.queues.For(pending.Origin, u.repos)
	if err != nil {
		return nil, err
	}
	if err := q.Enqueue(ctx, *pending); err != nil {
		return nil, err
	}
	u.logger.Info("order submitted",
		zap.String("pending_id", pending.ID),
		zap.String("origin", string(pending.Origin)),
		zap.String("total", pending.Total().StringFixed(2)),
	)
	return pending, nil
}

// List returns the live pending orders of origin, oldest first.
func (u *SubmissionUseCase) List(ctx context.Context, origin model.Origin) ([]model.PendingOrder, error) {
	q, err := u.queues.For(origin, u.repos)
	if err != nil {
		return nil, err
	}
	return q.ListPending(ctx)
}

// Peek returns a live pending order without consuming it.
func (u *SubmissionUseCase) Peek(ctx context.Context, origin model.Origin, id string) (*model.PendingOrder, error) {
	q, err := u.queues.For(origin, u.repos)
	if err != nil {
		return nil, err
	}
	return q.Peek(ctx, id)
}

// Status looks a submission up in the queue first and among committed
// orders second.
func (u *SubmissionUseCase) Status(ctx context.Context, origin model.Origin, id string) (*SubmissionStatus, error) {
	pending, err := u.Peek(ctx, origin, id)
	if err == nil {
		return &SubmissionStatus{PendingID: id, State: SubmissionWaiting, WaitTime: pending.WaitTime(u.now())}, nil
	}
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	order, err := u.repos.Orders().GetByPendingID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Origin != origin {
		return nil, domainErrors.ErrNotFound
	}
	return &SubmissionStatus{PendingID: id, State: SubmissionCommitted, Order: order}, nil
}
