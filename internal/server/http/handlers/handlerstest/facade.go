// Package handlerstest provides a recording stand-in for the HTTP facade.
package handlerstest

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/idempotency"
	pkgAuth "github.com/polkiloo/snackbar/internal/pkg/auth"
	testhelpers "github.com/polkiloo/snackbar/internal/test"
	"github.com/polkiloo/snackbar/internal/usecase"
)

// FacadeCall records one invocation made through SnackBarFacadeStub.
type FacadeCall struct {
	Method  string
	Key     idempotency.Key
	Origin  model.Origin
	ID      string
	OrderID int64
	ActorID int64
	Amount  decimal.Decimal
	Args    any
}

// SnackBarFacadeStub implements the HTTP facade. Err, when set, is returned
// by every operation without an override; otherwise canned values are
// returned. Calls are recorded.
type SnackBarFacadeStub struct {
	Err error

	LoginFn            func(ctx context.Context, login, password string) (*model.Staff, string, error)
	RegisterStaffFn    func(ctx context.Context, login, password string, role model.StaffRole) (*model.Staff, error)
	ParseTokenFn       func(token string) (pkgAuth.Claims, error)
	ShopStatusFn       func(ctx context.Context) (model.ShopStatus, error)
	SubmissionStatusFn func(ctx context.Context, origin model.Origin, id string) (*usecase.SubmissionStatus, error)
	PendingOrdersFn    func(ctx context.Context, origin model.Origin) ([]model.PendingOrder, error)
	OrdersFn           func(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error)
	DashboardFn        func(ctx context.Context) (*usecase.Dashboard, error)

	mu    sync.Mutex
	calls []FacadeCall
}

// Calls returns a copy of the recorded invocations.
func (s *SnackBarFacadeStub) Calls() []FacadeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FacadeCall(nil), s.calls...)
}

// LastCall returns the most recent invocation.
func (s *SnackBarFacadeStub) LastCall() (FacadeCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return FacadeCall{}, false
	}
	return s.calls[len(s.calls)-1], true
}

func (s *SnackBarFacadeStub) record(call FacadeCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

// SampleOrder is the order returned by the stub's order operations.
func SampleOrder(id int64) *model.Order {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:        id,
		Number:    model.OrderNumber(id),
		Origin:    model.OriginTable,
		PendingID: "pending-1",
		SessionID: 1,
		TableRef:  "T1",
		Status:    model.OrderStatusPending,
		Items: []model.LineItem{{
			ProductID: 1,
			Name:      "X-Burger",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("12.50"),
		}},
		Total:     decimal.RequireFromString("25.00"),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// SamplePending is the pending order returned by the stub's queue operations.
func SamplePending(origin model.Origin, id string) *model.PendingOrder {
	return &model.PendingOrder{
		ID:     id,
		Origin: origin,
		Items: []model.LineItem{{
			ProductID: 1,
			Name:      "X-Burger",
			Quantity:  1,
			UnitPrice: decimal.RequireFromString("12.50"),
		}},
		SubmittedAt: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func sampleSession(status model.SessionStatus) *model.WorkSession {
	at := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	return &model.WorkSession{ID: 1, Number: 1, BusinessDate: model.BusinessDate(at), StartedAt: at, Status: status, UserID: 1}
}

func (s *SnackBarFacadeStub) Login(ctx context.Context, login, password string) (*model.Staff, string, error) {
	s.record(FacadeCall{Method: "Login", Args: login})
	if s.LoginFn != nil {
		return s.LoginFn(ctx, login, password)
	}
	if s.Err != nil {
		return nil, "", s.Err
	}
	return &model.Staff{ID: 1, Login: login, Role: model.RoleCashier}, "token", nil
}

func (s *SnackBarFacadeStub) RegisterStaff(ctx context.Context, login, password string, role model.StaffRole) (*model.Staff, error) {
	s.record(FacadeCall{Method: "RegisterStaff", Args: role})
	if s.RegisterStaffFn != nil {
		return s.RegisterStaffFn(ctx, login, password, role)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &model.Staff{ID: 2, Login: login, Role: role}, nil
}

func (s *SnackBarFacadeStub) ParseToken(token string) (pkgAuth.Claims, error) {
	if s.ParseTokenFn != nil {
		return s.ParseTokenFn(token)
	}
	return testhelpers.ParseFormattedToken(token)
}

func (s *SnackBarFacadeStub) ShopStatus(ctx context.Context) (model.ShopStatus, error) {
	s.record(FacadeCall{Method: "ShopStatus"})
	if s.ShopStatusFn != nil {
		return s.ShopStatusFn(ctx)
	}
	if s.Err != nil {
		return "", s.Err
	}
	return model.ShopOpen, nil
}

func (s *SnackBarFacadeStub) SubmitTable(_ context.Context, key idempotency.Key, in usecase.TableSubmission) (*model.PendingOrder, error) {
	s.record(FacadeCall{Method: "SubmitTable", Key: key, Origin: model.OriginTable, Args: in})
	if s.Err != nil {
		return nil, s.Err
	}
	p := SamplePending(model.OriginTable, "table-1")
	p.TableRef = in.TableRef
	p.CustomerID = in.CustomerID
	p.CustomerName = in.CustomerName
	return p, nil
}

func (s *SnackBarFacadeStub) SubmitKiosk(_ context.Context, key idempotency.Key, in usecase.KioskSubmission) (*model.PendingOrder, error) {
	s.record(FacadeCall{Method: "SubmitKiosk", Key: key, Origin: model.OriginKiosk, Args: in})
	if s.Err != nil {
		return nil, s.Err
	}
	p := SamplePending(model.OriginKiosk, "kiosk-1")
	p.CustomerID = in.CustomerID
	p.CustomerName = in.CustomerName
	return p, nil
}

func (s *SnackBarFacadeStub) SubmissionStatus(ctx context.Context, origin model.Origin, id string) (*usecase.SubmissionStatus, error) {
	s.record(FacadeCall{Method: "SubmissionStatus", Origin: origin, ID: id})
	if s.SubmissionStatusFn != nil {
		return s.SubmissionStatusFn(ctx, origin, id)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &usecase.SubmissionStatus{PendingID: id, State: usecase.SubmissionWaiting, WaitTime: 90 * time.Second}, nil
}

func (s *SnackBarFacadeStub) PendingOrders(ctx context.Context, origin model.Origin) ([]model.PendingOrder, error) {
	s.record(FacadeCall{Method: "PendingOrders", Origin: origin})
	if s.PendingOrdersFn != nil {
		return s.PendingOrdersFn(ctx, origin)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return []model.PendingOrder{*SamplePending(origin, "p-1"), *SamplePending(origin, "p-2")}, nil
}

func (s *SnackBarFacadeStub) PendingOrder(_ context.Context, origin model.Origin, id string) (*model.PendingOrder, error) {
	s.record(FacadeCall{Method: "PendingOrder", Origin: origin, ID: id})
	if s.Err != nil {
		return nil, s.Err
	}
	return SamplePending(origin, id), nil
}

func (s *SnackBarFacadeStub) Accept(_ context.Context, key idempotency.Key, origin model.Origin, id string, actorID int64) (*model.Order, error) {
	s.record(FacadeCall{Method: "Accept", Key: key, Origin: origin, ID: id, ActorID: actorID})
	if s.Err != nil {
		return nil, s.Err
	}
	o := SampleOrder(1)
	o.Origin = origin
	o.PendingID = id
	o.CreatedBy = actorID
	return o, nil
}

func (s *SnackBarFacadeStub) Reject(_ context.Context, origin model.Origin, id string, actorID int64, reason string) (*model.PendingOrder, error) {
	s.record(FacadeCall{Method: "Reject", Origin: origin, ID: id, ActorID: actorID, Args: reason})
	if s.Err != nil {
		return nil, s.Err
	}
	return SamplePending(origin, id), nil
}

func (s *SnackBarFacadeStub) Order(_ context.Context, id int64) (*model.Order, error) {
	s.record(FacadeCall{Method: "Order", OrderID: id})
	if s.Err != nil {
		return nil, s.Err
	}
	return SampleOrder(id), nil
}

func (s *SnackBarFacadeStub) Orders(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	s.record(FacadeCall{Method: "Orders", Args: statuses})
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, statuses)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return []model.Order{*SampleOrder(1)}, nil
}

func (s *SnackBarFacadeStub) UpdateOrderStatus(_ context.Context, id int64, status model.OrderStatus, actorID int64) (*model.Order, error) {
	s.record(FacadeCall{Method: "UpdateOrderStatus", OrderID: id, ActorID: actorID, Args: status})
	if s.Err != nil {
		return nil, s.Err
	}
	o := SampleOrder(id)
	o.Status = status
	return o, nil
}

func (s *SnackBarFacadeStub) Settle(_ context.Context, key idempotency.Key, id int64, payments []usecase.PaymentRequest, actorID int64) (*model.Order, error) {
	s.record(FacadeCall{Method: "Settle", Key: key, OrderID: id, ActorID: actorID, Args: payments})
	if s.Err != nil {
		return nil, s.Err
	}
	o := SampleOrder(id)
	for _, p := range payments {
		o.Payments = append(o.Payments, model.PaymentEntry{Method: p.Method, Amount: p.Amount, Tendered: p.Tendered})
	}
	return o, nil
}

func (s *SnackBarFacadeStub) CorrectTendered(_ context.Context, id int64, tendered decimal.Decimal, actorID int64) (*model.Order, error) {
	s.record(FacadeCall{Method: "CorrectTendered", OrderID: id, ActorID: actorID, Amount: tendered})
	if s.Err != nil {
		return nil, s.Err
	}
	return SampleOrder(id), nil
}

func (s *SnackBarFacadeStub) StartSession(_ context.Context, opening decimal.Decimal, actorID int64) (*model.WorkSession, error) {
	s.record(FacadeCall{Method: "StartSession", ActorID: actorID, Amount: opening})
	if s.Err != nil {
		return nil, s.Err
	}
	session := sampleSession(model.SessionOpen)
	session.OpeningFloat = opening
	return session, nil
}

func (s *SnackBarFacadeStub) CurrentSession(context.Context) (*model.WorkSession, error) {
	s.record(FacadeCall{Method: "CurrentSession"})
	if s.Err != nil {
		return nil, s.Err
	}
	return sampleSession(model.SessionOpen), nil
}

func (s *SnackBarFacadeStub) PauseSession(_ context.Context, actorID int64) (*model.WorkSession, error) {
	s.record(FacadeCall{Method: "PauseSession", ActorID: actorID})
	if s.Err != nil {
		return nil, s.Err
	}
	return sampleSession(model.SessionPaused), nil
}

func (s *SnackBarFacadeStub) ResumeSession(_ context.Context, actorID int64) (*model.WorkSession, error) {
	s.record(FacadeCall{Method: "ResumeSession", ActorID: actorID})
	if s.Err != nil {
		return nil, s.Err
	}
	return sampleSession(model.SessionOpen), nil
}

func (s *SnackBarFacadeStub) CloseSession(_ context.Context, counted decimal.Decimal, actorID int64) (*model.Reconciliation, error) {
	s.record(FacadeCall{Method: "CloseSession", ActorID: actorID, Amount: counted})
	if s.Err != nil {
		return nil, s.Err
	}
	diff := counted.Sub(decimal.RequireFromString("100"))
	return &model.Reconciliation{SessionID: 1, Status: model.SessionClosed, Expected: decimal.RequireFromString("100"), Counted: &counted, Difference: &diff}, nil
}

func (s *SnackBarFacadeStub) Reconciliation(_ context.Context, sessionID int64) (*model.Reconciliation, error) {
	s.record(FacadeCall{Method: "Reconciliation", OrderID: sessionID})
	if s.Err != nil {
		return nil, s.Err
	}
	return &model.Reconciliation{SessionID: sessionID, Status: model.SessionOpen, Expected: decimal.RequireFromString("100")}, nil
}

func (s *SnackBarFacadeStub) Movements(_ context.Context, sessionID int64) ([]model.CashMovement, error) {
	s.record(FacadeCall{Method: "Movements", OrderID: sessionID})
	if s.Err != nil {
		return nil, s.Err
	}
	return nil, nil
}

func (s *SnackBarFacadeStub) RecordWithdrawal(_ context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error) {
	s.record(FacadeCall{Method: "RecordWithdrawal", ActorID: actorID, Amount: amount, Args: description})
	if s.Err != nil {
		return model.CashMovement{}, s.Err
	}
	return model.CashMovement{ID: 1, SessionID: 1, Kind: model.MovementWithdrawal, Amount: amount.Neg(), Description: description, ActorID: actorID}, nil
}

func (s *SnackBarFacadeStub) RecordDeposit(_ context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error) {
	s.record(FacadeCall{Method: "RecordDeposit", ActorID: actorID, Amount: amount, Args: description})
	if s.Err != nil {
		return model.CashMovement{}, s.Err
	}
	return model.CashMovement{ID: 2, SessionID: 1, Kind: model.MovementDeposit, Amount: amount, Description: description, ActorID: actorID}, nil
}

func (s *SnackBarFacadeStub) Dashboard(ctx context.Context) (*usecase.Dashboard, error) {
	s.record(FacadeCall{Method: "Dashboard"})
	if s.DashboardFn != nil {
		return s.DashboardFn(ctx)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &usecase.Dashboard{Global: decimal.RequireFromString("-1.50"), ClosedSessions: 2}, nil
}

// HealthCheckerStub reports Err from HealthCheck.
type HealthCheckerStub struct {
	Err error
}

// HealthCheck returns the configured error.
func (h HealthCheckerStub) HealthCheck(context.Context) error {
	return h.Err
}
