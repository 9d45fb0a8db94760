package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

type staffRepository struct {
	q querier
}

func (r *staffRepository) Create(ctx context.Context, login, passwordHash string, role model.StaffRole) (*model.Staff, error) {
	const query = `INSERT INTO staff (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`
	staff := model.Staff{Login: login, PasswordHash: passwordHash, Role: role}
	if err := r.q.QueryRow(ctx, query, login, passwordHash, string(role)).Scan(&staff.ID, &staff.CreatedAt); err != nil {
		if isUniqueViolation(err, "staff_login_key") {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) GetByLogin(ctx context.Context, login string) (*model.Staff, error) {
	const query = `SELECT id, login, password_hash, role, created_at FROM staff WHERE login=$1`
	return r.scanOne(r.q.QueryRow(ctx, query, login))
}

func (r *staffRepository) GetByID(ctx context.Context, id int64) (*model.Staff, error) {
	const query = `SELECT id, login, password_hash, role, created_at FROM staff WHERE id=$1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

func (r *staffRepository) scanOne(row pgx.Row) (*model.Staff, error) {
	var (
		s    model.Staff
		role string
	)
	if err := row.Scan(&s.ID, &s.Login, &s.PasswordHash, &role, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	s.Role = model.StaffRole(role)
	return &s, nil
}
