// Package worker runs background jobs next to the HTTP server.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/adapter/notify"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
)

// EventDispatcher drains the order event outbox into a publisher. Delivery is
// at least once: an event is released back to the outbox when publishing
// fails and claimed again on a later tick.
type EventDispatcher struct {
	events       repository.EventRepository
	publisher    notify.Publisher
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *zap.Logger

	jobs   chan model.OrderEvent
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewEventDispatcher constructs the dispatcher and its publishing pool.
func NewEventDispatcher(events repository.EventRepository, publisher notify.Publisher, pollInterval time.Duration, batchSize, workers int, logger *zap.Logger) *EventDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &EventDispatcher{
		events:       events,
		publisher:    publisher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger.Named("dispatcher"),
	}
}

// Start launches polling and the publisher pool.
func (d *EventDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.jobs = make(chan model.OrderEvent, d.batchSize*d.workers)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(runCtx)
	}

	d.wg.Add(1)
	go d.dispatch(runCtx)
}

// Stop cancels polling and waits for in-flight publishes.
func (d *EventDispatcher) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *EventDispatcher) dispatch(ctx context.Context) {
	defer d.wg.Done()
	defer close(d.jobs)
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.claimAndDispatch(ctx)
		}
	}
}

func (d *EventDispatcher) claimAndDispatch(ctx context.Context) {
	batch, err := d.events.ClaimBatch(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("claim outbox batch failed", zap.Error(err))
		return
	}
	for i, event := range batch {
		select {
		case <-ctx.Done():
			d.release(batch[i:])
			return
		case d.jobs <- event:
		}
	}
}

func (d *EventDispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for event := range d.jobs {
		if ctx.Err() != nil {
			d.release([]model.OrderEvent{event})
			continue
		}
		d.handle(ctx, event)
	}
}

func (d *EventDispatcher) handle(ctx context.Context, event model.OrderEvent) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Warn("publish order event failed",
			zap.Int64("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		d.release([]model.OrderEvent{event})
		return
	}
	if err := d.events.MarkPublished(ctx, event.ID); err != nil {
		d.logger.Error("mark event published failed", zap.Int64("event_id", event.ID), zap.Error(err))
	}
}

// release hands events back to the outbox on a fresh context, since the run
// context may already be canceled.
func (d *EventDispatcher) release(events []model.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, e := range events {
		if err := d.events.Release(ctx, e.ID); err != nil {
			d.logger.Error("release event failed", zap.Int64("event_id", e.ID), zap.Error(err))
		}
	}
}
