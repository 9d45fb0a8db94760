package repository

import (
	"context"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// LedgerRepository appends and reads cash movements. Entries are never updated.
type LedgerRepository interface {
	Append(ctx context.Context, movement model.CashMovement) (model.CashMovement, error)
	ListBySession(ctx context.Context, sessionID int64) ([]model.CashMovement, error)
	// CanceledOrderIDs lists canceled orders referenced by the session movements.
	CanceledOrderIDs(ctx context.Context, sessionID int64) ([]int64, error)
}
