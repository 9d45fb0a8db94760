package repository

import (
	"context"
	"time"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// PendingQueue holds submissions awaiting acceptance. Entries older than the
// queue TTL are invisible and purged lazily.
type PendingQueue interface {
	Enqueue(ctx context.Context, order model.PendingOrder) error
	// ListPending returns live entries oldest first.
	ListPending(ctx context.Context) ([]model.PendingOrder, error)
	Peek(ctx context.Context, id string) (*model.PendingOrder, error)
	// TakeAtomically removes and returns the entry. Concurrent callers for the
	// same id observe exactly one success; the rest get ErrNotFound.
	TakeAtomically(ctx context.Context, id string) (*model.PendingOrder, error)
	Remove(ctx context.Context, id string) error
	ExpireOlderThan(ctx context.Context, age time.Duration) (int, error)
}
