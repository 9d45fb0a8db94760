package repository

import (
	"context"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// EventRepository is the order event outbox.
type EventRepository interface {
	Append(ctx context.Context, event model.OrderEvent) error
	// ClaimBatch marks up to limit unpublished events as in delivery.
	ClaimBatch(ctx context.Context, limit int) ([]model.OrderEvent, error)
	MarkPublished(ctx context.Context, id int64) error
	Release(ctx context.Context, id int64) error
}
