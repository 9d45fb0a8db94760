package postgres

import (
	"context"
	"sort"
	"time"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

// claimLease is how long a claimed event stays invisible to other dispatchers.
const claimLease = time.Minute

type eventRepository struct {
	q   querier
	now func() time.Time
}

func (r *eventRepository) Append(ctx context.Context, event model.OrderEvent) error {
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	const query = `INSERT INTO order_events (type, order_id, pending_id, payload, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query, string(event.Type), event.OrderID, event.PendingID, payload, createdAt)
	return err
}

// ClaimBatch marks up to limit events as SENDING. Events whose lease ran out
// are claimed again, covering dispatchers that died mid-delivery.
func (r *eventRepository) ClaimBatch(ctx context.Context, limit int) ([]model.OrderEvent, error) {
	now := r.now()
	const query = `UPDATE order_events SET status='SENDING', claimed_at=$1
                   WHERE id IN (
                       SELECT id FROM order_events
                       WHERE status='NEW' OR (status='SENDING' AND claimed_at < $2)
                       ORDER BY id
                       LIMIT $3
                       FOR UPDATE SKIP LOCKED
                   )
                   RETURNING id, type, order_id, pending_id, payload, created_at`
	rows, err := r.q.Query(ctx, query, now, now.Add(-claimLease), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.OrderEvent
	for rows.Next() {
		var (
			e   model.OrderEvent
			typ string
		)
		if err := rows.Scan(&e.ID, &typ, &e.OrderID, &e.PendingID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = model.EventType(typ)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r *eventRepository) MarkPublished(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE order_events SET status='PUBLISHED', published_at=$1 WHERE id=$2`, r.now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *eventRepository) Release(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `UPDATE order_events SET status='NEW', claimed_at=NULL WHERE id=$1 AND status='SENDING'`, id)
	return err
}
