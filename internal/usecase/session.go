package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
)

// SessionUseCase opens, pauses and closes work sessions.
type SessionUseCase struct {
	repos  repository.Factory
	tx     repository.Transactor
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionUseCase constructs SessionUseCase.
func NewSessionUseCase(repos repository.Factory, tx repository.Transactor, logger *zap.Logger) *SessionUseCase {
	return &SessionUseCase{repos: repos, tx: tx, logger: logger.Named("sessions"), now: time.Now}
}

// Start opens a session with the opening float and books an OPEN movement.
func (u *SessionUseCase) Start(ctx context.Context, opening decimal.Decimal, userID int64) (*model.WorkSession, error) {
	var session *model.WorkSession
	err := u.tx.WithinTransaction(ctx, func(f repository.Factory) error {
		sessions := f.Sessions()
		if _, err := sessions.Active(ctx); err == nil {
			return domainErrors.ErrSessionAlreadyActive
		} else if !errors.Is(err, domainErrors.ErrNotFound) {
			return err
		}

		now := u.now()
		number, err := sessions.NextNumber(ctx, model.BusinessDate(now))
		if err != nil {
			return err
		}
		s, err := model.NewWorkSession(number, userID, opening, now)
		if err != nil {
			return err
		}
		if err := sessions.Create(ctx, s); err != nil {
			return err
		}
		movement, err := model.NewCashMovement(model.MovementInput{
			SessionID:   s.ID,
			Kind:        model.MovementOpen,
			Magnitude:   opening,
			Description: "opening float",
			ActorID:     userID,
		}, now)
		if err != nil {
			return err
		}
		if _, err := f.Ledger().Append(ctx, movement); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info("work session started",
		zap.Int64("session_id", session.ID),
		zap.Int("number", session.Number),
		zap.String("opening", opening.StringFixed(2)),
		zap.Int64("user_id", userID),
	)
	return session, nil
}

// Current returns the open or paused session.
func (u *SessionUseCase) Current(ctx context.Context) (*model.WorkSession, error) {
	return activeSession(ctx, u.repos.Sessions())
}

// ShopStatus is OPEN, PAUSED or CLOSED depending on the active session.
func (u *SessionUseCase) ShopStatus(ctx context.Context) (model.ShopStatus, error) {
	s, err := u.Current(ctx)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNoActiveSession) {
			return model.ShopClosed, nil
		}
		return "", err
	}
	return s.ShopStatus(), nil
}

// Pause stops customer submissions; staff keep working the queue.
func (u *SessionUseCase) Pause(ctx context.Context, actorID int64) (*model.WorkSession, error) {
	return u.transition(ctx, actorID, "work session paused", func(s *model.WorkSession) error {
		return s.Pause()
	})
}

// Resume reopens a paused session. The start time is kept.
func (u *SessionUseCase) Resume(ctx context.Context, actorID int64) (*model.WorkSession, error) {
	return u.transition(ctx, actorID, "work session resumed", func(s *model.WorkSession) error {
		return s.Resume()
	})
}

// Close ends the session with the counted drawer and returns its
// reconciliation.
func (u *SessionUseCase) Close(ctx context.Context, counted decimal.Decimal, actorID int64) (*model.Reconciliation, error) {
	var rec model.Reconciliation
	_, err := u.transition(ctx, actorID, "work session closed", func(s *model.WorkSession) error {
		return s.Close(counted, u.now())
	}, func(ctx context.Context, f repository.Factory, s *model.WorkSession) error {
		movement, err := model.NewCashMovement(model.MovementInput{
			SessionID:   s.ID,
			Kind:        model.MovementClose,
			Magnitude:   counted,
			Description: "counted drawer",
			ActorID:     actorID,
		}, u.now())
		if err != nil {
			return err
		}
		if _, err := f.Ledger().Append(ctx, movement); err != nil {
			return err
		}
		rec, err = reconcile(ctx, f, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec.Difference != nil && !rec.Difference.IsZero() {
		u.logger.Warn("drawer difference on close",
			zap.Int64("session_id", rec.SessionID),
			zap.String("difference", rec.Difference.StringFixed(2)),
		)
	}
	return &rec, nil
}

type afterTransition func(ctx context.Context, f repository.Factory, s *model.WorkSession) error

func (u *SessionUseCase) transition(ctx context.Context, actorID int64, msg string, change func(*model.WorkSession) error, after ...afterTransition) (*model.WorkSession, error) {
	var session *model.WorkSession
	err := u.tx.WithinTransaction(ctx, func(f repository.Factory) error {
		s, err := activeSession(ctx, f.Sessions())
		if err != nil {
			return err
		}
		from := s.Status
		if err := change(s); err != nil {
			return err
		}
		if err := f.Sessions().Transition(ctx, s, from); err != nil {
			return err
		}
		for _, fn := range after {
			if err := fn(ctx, f, s); err != nil {
				return err
			}
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.logger.Info(msg, zap.Int64("session_id", session.ID), zap.Int64("actor_id", actorID))
	return session, nil
}
