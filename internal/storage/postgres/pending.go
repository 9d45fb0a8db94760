package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

const pendingColumns = `id, origin, table_ref, customer_id, customer_name, items, payments, submitted_at`

// kioskQueue is the durable pending queue for self-service submissions.
// Expired rows are treated as absent by every read and purged by listing.
type kioskQueue struct {
	q   querier
	ttl time.Duration
	now func() time.Time
}

func (k *kioskQueue) cutoff() time.Time {
	if k.ttl <= 0 {
		return time.Time{}
	}
	return k.now().Add(-k.ttl)
}

func (k *kioskQueue) Enqueue(ctx context.Context, order model.PendingOrder) error {
	if order.Origin != model.OriginKiosk {
		return fmt.Errorf("%w: kiosk queue accepts %s orders only", domainErrors.ErrValidation, model.OriginKiosk)
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	payments := order.Payments
	if payments == nil {
		payments = []model.PaymentEntry{}
	}
	paymentsJSON, err := json.Marshal(payments)
	if err != nil {
		return fmt.Errorf("encode payments: %w", err)
	}

	const query = `INSERT INTO pending_orders (` + pendingColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = k.q.Exec(ctx, query, order.ID, string(order.Origin), order.TableRef, order.CustomerID, order.CustomerName, items, paymentsJSON, order.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (k *kioskQueue) ListPending(ctx context.Context) ([]model.PendingOrder, error) {
	if k.ttl > 0 {
		if _, err := k.ExpireOlderThan(ctx, k.ttl); err != nil {
			return nil, err
		}
	}

	const query = `SELECT ` + pendingColumns + ` FROM pending_orders
                   WHERE origin=$1 ORDER BY submitted_at, id`
	rows, err := k.q.Query(ctx, query, string(model.OriginKiosk))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.PendingOrder
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (k *kioskQueue) Peek(ctx context.Context, id string) (*model.PendingOrder, error) {
	const query = `SELECT ` + pendingColumns + ` FROM pending_orders
                   WHERE id=$1 AND origin=$2 AND submitted_at >= $3`
	return notFoundOnNoRows(scanPending(k.q.QueryRow(ctx, query, id, string(model.OriginKiosk), k.cutoff())))
}

// TakeAtomically deletes the row and returns it. Inside a transaction the
// deleted row stays locked until commit, so a concurrent taker blocks and then
// sees no row.
func (k *kioskQueue) TakeAtomically(ctx context.Context, id string) (*model.PendingOrder, error) {
	const query = `DELETE FROM pending_orders
                   WHERE id=$1 AND origin=$2 AND submitted_at >= $3
                   RETURNING ` + pendingColumns
	return notFoundOnNoRows(scanPending(k.q.QueryRow(ctx, query, id, string(model.OriginKiosk), k.cutoff())))
}

func (k *kioskQueue) Remove(ctx context.Context, id string) error {
	tag, err := k.q.Exec(ctx, `DELETE FROM pending_orders WHERE id=$1 AND origin=$2`, id, string(model.OriginKiosk))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (k *kioskQueue) ExpireOlderThan(ctx context.Context, age time.Duration) (int, error) {
	tag, err := k.q.Exec(ctx, `DELETE FROM pending_orders WHERE origin=$1 AND submitted_at < $2`,
		string(model.OriginKiosk), k.now().Add(-age))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanPending(row pgx.Row) (*model.PendingOrder, error) {
	var (
		p                     model.PendingOrder
		origin                string
		itemsRaw, paymentsRaw []byte
	)
	if err := row.Scan(&p.ID, &origin, &p.TableRef, &p.CustomerID, &p.CustomerName, &itemsRaw, &paymentsRaw, &p.SubmittedAt); err != nil {
		return nil, err
	}
	p.Origin = model.Origin(origin)
	if err := json.Unmarshal(itemsRaw, &p.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", p.ID, err)
	}
	if len(paymentsRaw) > 0 {
		if err := json.Unmarshal(paymentsRaw, &p.Payments); err != nil {
			return nil, fmt.Errorf("decode payments of %s: %w", p.ID, err)
		}
	}
	if len(p.Payments) == 0 {
		p.Payments = nil
	}
	return &p, nil
}

func notFoundOnNoRows[T any](v *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}
