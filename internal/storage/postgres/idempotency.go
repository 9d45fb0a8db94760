package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

type idempotencyRepository struct {
	q querier
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, operation string, lease time.Duration) (bool, error) {
	const query = `INSERT INTO idempotency_records (key, operation, state, created_at) VALUES ($1, $2, $3, NOW())
                   ON CONFLICT (key, operation) DO UPDATE SET created_at = NOW()
                   WHERE idempotency_records.state = $3
                     AND idempotency_records.created_at < NOW() - make_interval(secs => $4)`
	tag, err := r.q.Exec(ctx, query, key, operation, string(model.IdempotencyInFlight), lease.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *idempotencyRepository) Get(ctx context.Context, key, operation string) (*model.IdempotencyRecord, error) {
	const query = `SELECT key, operation, state, payload, created_at FROM idempotency_records
                   WHERE key=$1 AND operation=$2`
	var (
		rec   model.IdempotencyRecord
		state string
	)
	if err := r.q.QueryRow(ctx, query, key, operation).Scan(&rec.Key, &rec.Operation, &state, &rec.Payload, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	rec.State = model.IdempotencyState(state)
	return &rec, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, operation string, payload []byte) error {
	const query = `UPDATE idempotency_records SET state=$1, payload=$2 WHERE key=$3 AND operation=$4`
	tag, err := r.q.Exec(ctx, query, string(model.IdempotencyCompleted), payload, key, operation)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *idempotencyRepository) Release(ctx context.Context, key, operation string) error {
	const query = `DELETE FROM idempotency_records WHERE key=$1 AND operation=$2 AND state=$3`
	_, err := r.q.Exec(ctx, query, key, operation, string(model.IdempotencyInFlight))
	return err
}
