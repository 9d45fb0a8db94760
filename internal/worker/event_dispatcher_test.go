package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/domain/model"
	testhelpers "github.com/polkiloo/snackbar/internal/test"
)

type publisherStub struct {
	sync.Mutex
	failures  int
	published []model.OrderEvent
	attempts  int
}

func (p *publisherStub) Publish(_ context.Context, event model.OrderEvent) error {
	p.Lock()
	defer p.Unlock()
	p.attempts++
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *publisherStub) Close() error { return nil }

func (p *publisherStub) count() int {
	p.Lock()
	defer p.Unlock()
	return len(p.published)
}

func appendEvents(t *testing.T, store *testhelpers.MemoryStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := int64(i + 1)
		err := store.Events().Append(context.Background(), model.OrderEvent{
			Type:    model.EventOrderAccepted,
			OrderID: &id,
			Payload: []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("append event: %v", err)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for dispatcher")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNewEventDispatcherDefaults(t *testing.T) {
	d := NewEventDispatcher(testhelpers.NewMemoryStore().Events(), &publisherStub{}, 0, 0, 0, zap.NewNop())
	if d.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", d.batchSize)
	}
	if d.workers != 1 {
		t.Fatalf("expected workers default to 1, got %d", d.workers)
	}
	if d.pollInterval != time.Second {
		t.Fatalf("expected poll interval default to 1s, got %s", d.pollInterval)
	}
}

func TestEventDispatcherPublishesOutbox(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	appendEvents(t, store, 5)
	pub := &publisherStub{}
	d := NewEventDispatcher(store.Events(), pub, 5*time.Millisecond, 2, 3, zap.NewNop())

	d.Start(context.Background())
	waitFor(t, func() bool { return store.PublishedEvents() == 5 })
	d.Stop()

	if got := pub.count(); got != 5 {
		t.Fatalf("expected 5 published events, got %d", got)
	}
	seen := make(map[int64]bool)
	for _, e := range pub.published {
		if seen[e.ID] {
			t.Fatalf("event %d published twice", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestEventDispatcherRetriesFailedPublish(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	appendEvents(t, store, 1)
	pub := &publisherStub{failures: 2}
	d := NewEventDispatcher(store.Events(), pub, 5*time.Millisecond, 1, 1, zap.NewNop())

	d.Start(context.Background())
	waitFor(t, func() bool { return store.PublishedEvents() == 1 })
	d.Stop()

	pub.Lock()
	defer pub.Unlock()
	if pub.attempts != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", pub.attempts)
	}
}

func TestEventDispatcherSurvivesClaimErrors(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	appendEvents(t, store, 2)
	var mu sync.Mutex
	failing := true
	store.Fail = func(op string) error {
		mu.Lock()
		defer mu.Unlock()
		if op == "events.claim" && failing {
			failing = false
			return errors.New("connection reset")
		}
		return nil
	}
	pub := &publisherStub{}
	d := NewEventDispatcher(store.Events(), pub, 5*time.Millisecond, 10, 1, zap.NewNop())

	d.Start(context.Background())
	waitFor(t, func() bool { return store.PublishedEvents() == 2 })
	d.Stop()
}

func TestEventDispatcherStopIsIdempotent(t *testing.T) {
	d := NewEventDispatcher(testhelpers.NewMemoryStore().Events(), &publisherStub{}, time.Hour, 1, 2, zap.NewNop())
	d.Start(context.Background())
	d.Start(context.Background())
	d.Stop()
	d.Stop()
}
