package app

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/idempotency"
	"github.com/polkiloo/snackbar/internal/pkg/auth"
	"github.com/polkiloo/snackbar/internal/usecase"
)

// FacadeParams lists the use cases behind the HTTP surface.
type FacadeParams struct {
	fx.In

	Auth        *usecase.AuthUseCase
	Submissions *usecase.SubmissionUseCase
	Acceptance  *usecase.AcceptanceUseCase
	Orders      *usecase.OrderUseCase
	Sessions    *usecase.SessionUseCase
	Ledger      *usecase.LedgerUseCase
	Guard       *idempotency.Guard
}

// SnackBarFacade is the single entry point used by HTTP handlers. Operations
// that create orders or book money run through the idempotency guard.
type SnackBarFacade struct {
	auth        *usecase.AuthUseCase
	submissions *usecase.SubmissionUseCase
	acceptance  *usecase.AcceptanceUseCase
	orders      *usecase.OrderUseCase
	sessions    *usecase.SessionUseCase
	ledger      *usecase.LedgerUseCase
	guard       *idempotency.Guard
}

func NewSnackBarFacade(p FacadeParams) *SnackBarFacade {
	return &SnackBarFacade{
		auth:        p.Auth,
		submissions: p.Submissions,
		acceptance:  p.Acceptance,
		orders:      p.Orders,
		sessions:    p.Sessions,
		ledger:      p.Ledger,
		guard:       p.Guard,
	}
}

func (f *SnackBarFacade) Login(ctx context.Context, login, password string) (*model.Staff, string, error) {
	return f.auth.Authenticate(ctx, login, password)
}

func (f *SnackBarFacade) RegisterStaff(ctx context.Context, login, password string, role model.StaffRole) (*model.Staff, error) {
	return f.auth.Register(ctx, login, password, role)
}

func (f *SnackBarFacade) BootstrapManager(ctx context.Context, login, password string) error {
	return f.auth.Bootstrap(ctx, login, password)
}

func (f *SnackBarFacade) ParseToken(token string) (auth.Claims, error) {
	return f.auth.ParseToken(token)
}

func (f *SnackBarFacade) ShopStatus(ctx context.Context) (model.ShopStatus, error) {
	return f.sessions.ShopStatus(ctx)
}

func (f *SnackBarFacade) SubmitTable(ctx context.Context, key idempotency.Key, in usecase.TableSubmission) (*model.PendingOrder, error) {
	return idempotency.Execute(ctx, f.guard, key, func(ctx context.Context) (*model.PendingOrder, error) {
		return f.submissions.SubmitTable(ctx, in)
	})
}

func (f *SnackBarFacade) SubmitKiosk(ctx context.Context, key idempotency.Key, in usecase.KioskSubmission) (*model.PendingOrder, error) {
	return idempotency.Execute(ctx, f.guard, key, func(ctx context.Context) (*model.PendingOrder, error) {
		return f.submissions.SubmitKiosk(ctx, in)
	})
}

func (f *SnackBarFacade) PendingOrders(ctx context.Context, origin model.Origin) ([]model.PendingOrder, error) {
	return f.submissions.List(ctx, origin)
}

func (f *SnackBarFacade) PendingOrder(ctx context.Context, origin model.Origin, id string) (*model.PendingOrder, error) {
	return f.submissions.Peek(ctx, origin, id)
}

func (f *SnackBarFacade) SubmissionStatus(ctx context.Context, origin model.Origin, id string) (*usecase.SubmissionStatus, error) {
	return f.submissions.Status(ctx, origin, id)
}

func (f *SnackBarFacade) Accept(ctx context.Context, key idempotency.Key, origin model.Origin, id string, actorID int64) (*model.Order, error) {
	return idempotency.Execute(ctx, f.guard, key, func(ctx context.Context) (*model.Order, error) {
		return f.acceptance.Accept(ctx, origin, id, actorID)
	})
}

func (f *SnackBarFacade) Reject(ctx context.Context, origin model.Origin, id string, actorID int64, reason string) (*model.PendingOrder, error) {
	return f.acceptance.Reject(ctx, origin, id, actorID, reason)
}

func (f *SnackBarFacade) Order(ctx context.Context, id int64) (*model.Order, error) {
	return f.orders.Get(ctx, id)
}

func (f *SnackBarFacade) Orders(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	return f.orders.List(ctx, statuses)
}

func (f *SnackBarFacade) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus, actorID int64) (*model.Order, error) {
	return f.orders.UpdateStatus(ctx, id, status, actorID)
}

func (f *SnackBarFacade) Settle(ctx context.Context, key idempotency.Key, id int64, payments []usecase.PaymentRequest, actorID int64) (*model.Order, error) {
	return idempotency.Execute(ctx, f.guard, key, func(ctx context.Context) (*model.Order, error) {
		return f.orders.Settle(ctx, id, payments, actorID)
	})
}

func (f *SnackBarFacade) CorrectTendered(ctx context.Context, id int64, tendered decimal.Decimal, actorID int64) (*model.Order, error) {
	return f.orders.CorrectTendered(ctx, id, tendered, actorID)
}

func (f *SnackBarFacade) StartSession(ctx context.Context, opening decimal.Decimal, actorID int64) (*model.WorkSession, error) {
	return f.sessions.Start(ctx, opening, actorID)
}

func (f *SnackBarFacade) CurrentSession(ctx context.Context) (*model.WorkSession, error) {
	return f.sessions.Current(ctx)
}

func (f *SnackBarFacade) PauseSession(ctx context.Context, actorID int64) (*model.WorkSession, error) {
	return f.sessions.Pause(ctx, actorID)
}

func (f *SnackBarFacade) ResumeSession(ctx context.Context, actorID int64) (*model.WorkSession, error) {
	return f.sessions.Resume(ctx, actorID)
}

func (f *SnackBarFacade) CloseSession(ctx context.Context, counted decimal.Decimal, actorID int64) (*model.Reconciliation, error) {
	return f.sessions.Close(ctx, counted, actorID)
}

func (f *SnackBarFacade) Reconciliation(ctx context.Context, sessionID int64) (*model.Reconciliation, error) {
	return f.ledger.Reconciliation(ctx, sessionID)
}

func (f *SnackBarFacade) Movements(ctx context.Context, sessionID int64) ([]model.CashMovement, error) {
	return f.ledger.Movements(ctx, sessionID)
}

func (f *SnackBarFacade) RecordWithdrawal(ctx context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error) {
	return f.ledger.RecordWithdrawal(ctx, amount, description, actorID)
}

func (f *SnackBarFacade) RecordDeposit(ctx context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error) {
	return f.ledger.RecordDeposit(ctx, amount, description, actorID)
}

func (f *SnackBarFacade) Dashboard(ctx context.Context) (*usecase.Dashboard, error) {
	return f.ledger.Dashboard(ctx)
}
