package repository

import (
	"context"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// StaffRepository describes persistence operations for staff accounts.
type StaffRepository interface {
	Create(ctx context.Context, login, passwordHash string, role model.StaffRole) (*model.Staff, error)
	GetByLogin(ctx context.Context, login string) (*model.Staff, error)
	GetByID(ctx context.Context, id int64) (*model.Staff, error)
}
