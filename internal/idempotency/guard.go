// Package idempotency replays stored results for repeated client requests.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
)

const (
	defaultWait         = 5 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	defaultLease        = time.Minute
	completeAttempts    = 3
)

// Key identifies a guarded request: the client supplied key plus the
// operation signature (method and route template).
type Key struct {
	Value     string
	Operation string
}

// Empty reports whether the client sent no key.
func (k Key) Empty() bool {
	return k.Value == ""
}

// Guard serializes requests sharing a key and replays the first result.
type Guard struct {
	records repository.IdempotencyRepository
	logger  *zap.Logger
	wait    time.Duration
	poll    time.Duration
	lease   time.Duration
	group   singleflight.Group
}

// Options tunes how long duplicates wait for an in-flight original. Lease is
// the age after which an unfinished reservation may be taken over, so a
// crashed original does not block its key forever.
type Options struct {
	Wait         time.Duration
	PollInterval time.Duration
	Lease        time.Duration
}

// NewGuard creates a guard backed by records.
func NewGuard(records repository.IdempotencyRepository, logger *zap.Logger, opts Options) *Guard {
	if opts.Wait <= 0 {
		opts.Wait = defaultWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Lease <= 0 {
		opts.Lease = defaultLease
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{records: records, logger: logger, wait: opts.Wait, poll: opts.PollInterval, lease: opts.Lease}
}

// Execute runs fn at most once per key. Later calls with the same key get the
// stored result. Failed runs are not stored so the client may retry. An empty
// key bypasses the guard.
func Execute[T any](ctx context.Context, g *Guard, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if key.Empty() {
		return fn(ctx)
	}

	payload, err, shared := g.group.Do(key.Operation+"\x00"+key.Value, func() (any, error) {
		return g.execute(ctx, key, func(ctx context.Context) ([]byte, error) {
			result, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		})
	})
	if err != nil {
		return zero, err
	}
	if shared {
		g.logger.Debug("idempotent request coalesced", zap.String("operation", key.Operation))
	}

	var out T
	if err := json.Unmarshal(payload.([]byte), &out); err != nil {
		return zero, fmt.Errorf("decode stored result: %w", err)
	}
	return out, nil
}

func (g *Guard) execute(ctx context.Context, key Key, run func(context.Context) ([]byte, error)) ([]byte, error) {
	deadline := time.Now().Add(g.wait)
	for {
		won, err := g.records.Reserve(ctx, key.Value, key.Operation, g.lease)
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if won {
			return g.runReserved(ctx, key, run)
		}

		record, err := g.records.Get(ctx, key.Value, key.Operation)
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			// released by a failed original between our reserve and read
			continue
		case err != nil:
			return nil, fmt.Errorf("read idempotency record: %w", err)
		case record.State == model.IdempotencyCompleted:
			g.logger.Info("replaying stored result", zap.String("operation", key.Operation))
			return record.Payload, nil
		}

		if time.Now().After(deadline) {
			return nil, domainErrors.ErrIdempotencyInFlight
		}
		timer := time.NewTimer(g.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (g *Guard) runReserved(ctx context.Context, key Key, run func(context.Context) ([]byte, error)) ([]byte, error) {
	payload, err := run(ctx)
	if err != nil {
		if relErr := g.records.Release(context.WithoutCancel(ctx), key.Value, key.Operation); relErr != nil {
			g.logger.Error("release idempotency key failed",
				zap.String("operation", key.Operation),
				zap.Error(relErr),
			)
		}
		return nil, err
	}
	if err := g.complete(context.WithoutCancel(ctx), key, payload); err != nil {
		// The operation already committed. Its reservation expires after the
		// lease and a later retry runs it again.
		g.logger.Error("store idempotent result failed",
			zap.String("operation", key.Operation),
			zap.Duration("lease", g.lease),
			zap.Error(err),
		)
	}
	return payload, nil
}

func (g *Guard) complete(ctx context.Context, key Key, payload []byte) error {
	var err error
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		if err = g.records.Complete(ctx, key.Value, key.Operation, payload); err == nil {
			return nil
		}
		if attempt < completeAttempts {
			time.Sleep(time.Duration(attempt) * g.poll)
		}
	}
	return err
}
