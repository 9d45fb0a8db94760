package repository

import (
	"context"
	"time"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// SessionRepository persists work sessions.
type SessionRepository interface {
	// Create fails with ErrSessionAlreadyActive when an open or paused session exists.
	Create(ctx context.Context, session *model.WorkSession) error
	// Active returns the open or paused session, ErrNotFound when none.
	Active(ctx context.Context) (*model.WorkSession, error)
	GetByID(ctx context.Context, id int64) (*model.WorkSession, error)
	NextNumber(ctx context.Context, businessDate time.Time) (int, error)
	// Transition persists status, end time and closing count when the stored
	// status still equals from.
	Transition(ctx context.Context, session *model.WorkSession, from model.SessionStatus) error
	LastClosed(ctx context.Context) (*model.WorkSession, error)
	ListClosed(ctx context.Context) ([]model.WorkSession, error)
}
