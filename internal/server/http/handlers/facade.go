package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/idempotency"
	pkgAuth "github.com/polkiloo/snackbar/internal/pkg/auth"
	"github.com/polkiloo/snackbar/internal/usecase"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Login(ctx context.Context, login, password string) (*model.Staff, string, error)
	RegisterStaff(ctx context.Context, login, password string, role model.StaffRole) (*model.Staff, error)
	ParseToken(token string) (pkgAuth.Claims, error)
}

// CustomerFacade covers the unauthenticated customer endpoints.
type CustomerFacade interface {
	ShopStatus(ctx context.Context) (model.ShopStatus, error)
	SubmitTable(ctx context.Context, key idempotency.Key, in usecase.TableSubmission) (*model.PendingOrder, error)
	SubmitKiosk(ctx context.Context, key idempotency.Key, in usecase.KioskSubmission) (*model.PendingOrder, error)
	SubmissionStatus(ctx context.Context, origin model.Origin, id string) (*usecase.SubmissionStatus, error)
}

// PendingFacade lets staff work the pending queues.
type PendingFacade interface {
	PendingOrders(ctx context.Context, origin model.Origin) ([]model.PendingOrder, error)
	PendingOrder(ctx context.Context, origin model.Origin, id string) (*model.PendingOrder, error)
	Accept(ctx context.Context, key idempotency.Key, origin model.Origin, id string, actorID int64) (*model.Order, error)
	Reject(ctx context.Context, origin model.Origin, id string, actorID int64, reason string) (*model.PendingOrder, error)
}

// OrderFacade encapsulates committed order operations exposed via HTTP.
type OrderFacade interface {
	Order(ctx context.Context, id int64) (*model.Order, error)
	Orders(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus, actorID int64) (*model.Order, error)
	Settle(ctx context.Context, key idempotency.Key, id int64, payments []usecase.PaymentRequest, actorID int64) (*model.Order, error)
	CorrectTendered(ctx context.Context, id int64, tendered decimal.Decimal, actorID int64) (*model.Order, error)
}

// CashFacade covers work sessions and the drawer ledger.
type CashFacade interface {
	StartSession(ctx context.Context, opening decimal.Decimal, actorID int64) (*model.WorkSession, error)
	CurrentSession(ctx context.Context) (*model.WorkSession, error)
	PauseSession(ctx context.Context, actorID int64) (*model.WorkSession, error)
	ResumeSession(ctx context.Context, actorID int64) (*model.WorkSession, error)
	CloseSession(ctx context.Context, counted decimal.Decimal, actorID int64) (*model.Reconciliation, error)
	Reconciliation(ctx context.Context, sessionID int64) (*model.Reconciliation, error)
	Movements(ctx context.Context, sessionID int64) ([]model.CashMovement, error)
	RecordWithdrawal(ctx context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error)
	RecordDeposit(ctx context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error)
	Dashboard(ctx context.Context) (*usecase.Dashboard, error)
}

// HealthChecker reports whether storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SnackBarFacade aggregates the full set of operations used across handlers.
type SnackBarFacade interface {
	AuthFacade
	CustomerFacade
	PendingFacade
	OrderFacade
	CashFacade
}
