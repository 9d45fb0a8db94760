package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

const sessionColumns = `id, number, business_date, started_at, ended_at, status, opening_cents, closing_cents, user_id`

type sessionRepository struct {
	q querier
}

func (r *sessionRepository) Create(ctx context.Context, session *model.WorkSession) error {
	const query = `INSERT INTO work_sessions (number, business_date, started_at, status, opening_cents, user_id)
                   VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.q.QueryRow(ctx, query, session.Number, session.BusinessDate, session.StartedAt,
		string(session.Status), model.Cents(session.OpeningFloat), session.UserID).Scan(&session.ID)
	if err != nil {
		switch {
		case isUniqueViolation(err, "work_sessions_single_active"):
			return domainErrors.ErrSessionAlreadyActive
		case isUniqueViolation(err, "work_sessions_date_number_key"):
			return fmt.Errorf("%w: session %d of %s", domainErrors.ErrAlreadyExists, session.Number, session.BusinessDate.Format(time.DateOnly))
		}
		return fmt.Errorf("insert work session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Active(ctx context.Context) (*model.WorkSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM work_sessions WHERE status IN ('OPEN', 'PAUSED')`
	return r.getOne(ctx, query)
}

func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*model.WorkSession, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM work_sessions WHERE id=$1`, id)
}

func (r *sessionRepository) NextNumber(ctx context.Context, businessDate time.Time) (int, error) {
	var next int
	err := r.q.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM work_sessions WHERE business_date=$1`, businessDate).
		Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Transition never touches started_at: resuming a paused session keeps it.
func (r *sessionRepository) Transition(ctx context.Context, session *model.WorkSession, from model.SessionStatus) error {
	var closing *int64
	if session.ClosingCount != nil {
		c := model.Cents(*session.ClosingCount)
		closing = &c
	}
	const query = `UPDATE work_sessions SET status=$1, ended_at=$2, closing_cents=$3 WHERE id=$4 AND status=$5`
	tag, err := r.q.Exec(ctx, query, string(session.Status), session.EndedAt, closing, session.ID, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %d is no longer %s", domainErrors.ErrInvalidTransition, session.ID, from)
	}
	return nil
}

func (r *sessionRepository) LastClosed(ctx context.Context) (*model.WorkSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM work_sessions
                   WHERE status='CLOSED' ORDER BY ended_at DESC, id DESC LIMIT 1`
	return r.getOne(ctx, query)
}

func (r *sessionRepository) ListClosed(ctx context.Context) ([]model.WorkSession, error) {
	rows, err := r.q.Query(ctx, `SELECT `+sessionColumns+` FROM work_sessions WHERE status='CLOSED' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WorkSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *sessionRepository) getOne(ctx context.Context, query string, args ...any) (*model.WorkSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanSession(row pgx.Row) (*model.WorkSession, error) {
	var (
		id, opening, userID   int64
		number                int
		businessDate, started time.Time
		ended                 *time.Time
		status                string
		closing               *int64
	)
	if err := row.Scan(&id, &number, &businessDate, &started, &ended, &status, &opening, &closing, &userID); err != nil {
		return nil, err
	}
	var counted *decimal.Decimal
	if closing != nil {
		c := model.FromCents(*closing)
		counted = &c
	}
	return model.RehydrateSession(id, number, businessDate, started, ended, model.SessionStatus(status),
		model.FromCents(opening), counted, userID), nil
}
