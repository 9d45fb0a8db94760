package postgres

import (
	"context"
	"fmt"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// ledgerRepository is append-only: cash_movements rows are never updated.
type ledgerRepository struct {
	q querier
}

func (r *ledgerRepository) Append(ctx context.Context, m model.CashMovement) (model.CashMovement, error) {
	const query = `INSERT INTO cash_movements (session_id, kind, amount_cents, order_id, description, actor_id, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.q.QueryRow(ctx, query, m.SessionID, string(m.Kind), model.Cents(m.Amount), m.OrderID, m.Description, m.ActorID, m.CreatedAt).
		Scan(&m.ID)
	if err != nil {
		return model.CashMovement{}, fmt.Errorf("append cash movement: %w", err)
	}
	return m, nil
}

func (r *ledgerRepository) ListBySession(ctx context.Context, sessionID int64) ([]model.CashMovement, error) {
	const query = `SELECT id, session_id, kind, amount_cents, order_id, description, actor_id, created_at
                   FROM cash_movements WHERE session_id=$1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.CashMovement
	for rows.Next() {
		var (
			m      model.CashMovement
			kind   string
			amount int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &kind, &amount, &m.OrderID, &m.Description, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Kind = model.MovementKind(kind)
		m.Amount = model.FromCents(amount)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ledgerRepository) CanceledOrderIDs(ctx context.Context, sessionID int64) ([]int64, error) {
	const query = `SELECT DISTINCT o.id FROM cash_movements m
                   JOIN orders o ON o.id = m.order_id
                   WHERE m.session_id=$1 AND o.status=$2
                   ORDER BY o.id`
	rows, err := r.q.Query(ctx, query, sessionID, string(model.OrderStatusCanceled))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
