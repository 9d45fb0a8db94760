package repository

import (
	"context"
	"time"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// IdempotencyRepository stores request outcomes keyed by (key, operation).
type IdempotencyRepository interface {
	// Reserve inserts an in-flight record and reports whether this caller won.
	// An in-flight record older than lease is taken over by the caller.
	Reserve(ctx context.Context, key, operation string, lease time.Duration) (bool, error)
	Get(ctx context.Context, key, operation string) (*model.IdempotencyRecord, error)
	Complete(ctx context.Context, key, operation string, payload []byte) error
	// Release drops an in-flight reservation after a failed attempt.
	Release(ctx context.Context, key, operation string) error
}
