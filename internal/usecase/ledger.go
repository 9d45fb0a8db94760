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

// Dashboard aggregates drawer differences over closed sessions.
type Dashboard struct {
	Global         decimal.Decimal       `json:"global_difference"`
	ClosedSessions int                   `json:"closed_sessions"`
	Previous       *model.Reconciliation `json:"previous_session,omitempty"`
}

// LedgerUseCase books manual till movements and reconciles sessions.
type LedgerUseCase struct {
	repos  repository.Factory
	tx     repository.Transactor
	logger *zap.Logger
	now    func() time.Time
}

// NewLedgerUseCase constructs LedgerUseCase.
func NewLedgerUseCase(repos repository.Factory, tx repository.Transactor, logger *zap.Logger) *LedgerUseCase {
	return &LedgerUseCase{repos: repos, tx: tx, logger: logger.Named("ledger"), now: time.Now}
}

// RecordWithdrawal books cash taken out of the drawer.
func (u *LedgerUseCase) RecordWithdrawal(ctx context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error) {
	return u.record(ctx, model.MovementWithdrawal, amount, description, actorID)
}

// RecordDeposit books cash put into the drawer.
func (u *LedgerUseCase) RecordDeposit(ctx context.Context, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error) {
	return u.record(ctx, model.MovementDeposit, amount, description, actorID)
}

func (u *LedgerUseCase) record(ctx context.Context, kind model.MovementKind, amount decimal.Decimal, description string, actorID int64) (model.CashMovement, error) {
	var stored model.CashMovement
	err := u.tx.WithinTransaction(ctx, func(f repository.Factory) error {
		session, err := activeSession(ctx, f.Sessions())
		if err != nil {
			return err
		}
		movement, err := model.NewCashMovement(model.MovementInput{
			SessionID:   session.ID,
			Kind:        kind,
			Magnitude:   amount,
			Description: description,
			ActorID:     actorID,
		}, u.now())
		if err != nil {
			return err
		}
		stored, err = f.Ledger().Append(ctx, movement)
		return err
	})
	if err != nil {
		return model.CashMovement{}, err
	}
	u.logger.Info("cash movement recorded",
		zap.String("kind", string(kind)),
		zap.String("amount", stored.Amount.StringFixed(2)),
		zap.Int64("session_id", stored.SessionID),
		zap.Int64("actor_id", actorID),
	)
	return stored, nil
}

// Movements lists the ledger of a session in booking order.
func (u *LedgerUseCase) Movements(ctx context.Context, sessionID int64) ([]model.CashMovement, error) {
	if _, err := u.repos.Sessions().GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return u.repos.Ledger().ListBySession(ctx, sessionID)
}

// Reconciliation computes the expected drawer of a session.
func (u *LedgerUseCase) Reconciliation(ctx context.Context, sessionID int64) (*model.Reconciliation, error) {
	session, err := u.repos.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := reconcile(ctx, u.repos, session)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Difference is counted minus expected of a closed session.
func (u *LedgerUseCase) Difference(ctx context.Context, sessionID int64) (decimal.Decimal, error) {
	rec, err := u.Reconciliation(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	if rec.Difference == nil {
		return decimal.Zero, fmt.Errorf("%w: session %d is %s", domainErrors.ErrSessionNotClosed, sessionID, rec.Status)
	}
	return *rec.Difference, nil
}

// GlobalDifference sums the differences of every closed session.
func (u *LedgerUseCase) GlobalDifference(ctx context.Context) (decimal.Decimal, int, error) {
	closed, err := u.repos.Sessions().ListClosed(ctx)
	if err != nil {
		return decimal.Zero, 0, err
	}
	total := decimal.Zero
	for i := range closed {
		rec, err := reconcile(ctx, u.repos, &closed[i])
		if err != nil {
			return decimal.Zero, 0, err
		}
		if rec.Difference != nil {
			total = total.Add(*rec.Difference)
		}
	}
	return total, len(closed), nil
}

// PreviousSessionDifference reconciles the most recently closed session.
func (u *LedgerUseCase) PreviousSessionDifference(ctx context.Context) (*model.Reconciliation, error) {
	last, err := u.repos.Sessions().LastClosed(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := reconcile(ctx, u.repos, last)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Dashboard combines the global and previous session differences.
func (u *LedgerUseCase) Dashboard(ctx context.Context) (*Dashboard, error) {
	global, closed, err := u.GlobalDifference(ctx)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{Global: global, ClosedSessions: closed}
	if closed == 0 {
		return d, nil
	}
	if d.Previous, err = u.PreviousSessionDifference(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func reconcile(ctx context.Context, f repository.Factory, session *model.WorkSession) (model.Reconciliation, error) {
	ledger := f.Ledger()
	movements, err := ledger.ListBySession(ctx, session.ID)
	if err != nil {
		return model.Reconciliation{}, err
	}
	ids, err := ledger.CanceledOrderIDs(ctx, session.ID)
	if err != nil {
		return model.Reconciliation{}, err
	}
	canceled := make(map[int64]bool, len(ids))
	for _, id := range ids {
		canceled[id] = true
	}
	return model.Reconcile(*session, movements, canceled), nil
}
