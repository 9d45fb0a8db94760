// Package queue holds pending order queues that live in process memory.
package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
)

// Memory is a mutex guarded pending queue. Entries are lost on restart.
type Memory struct {
	origin model.Origin
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	items map[string]model.PendingOrder
}

var _ repository.PendingQueue = (*Memory)(nil)

// NewMemory creates a queue accepting entries of one origin.
func NewMemory(origin model.Origin, ttl time.Duration, clock func() time.Time) *Memory {
	if clock == nil {
		clock = time.Now
	}
	return &Memory{
		origin: origin,
		ttl:    ttl,
		now:    clock,
		items:  make(map[string]model.PendingOrder),
	}
}

// Enqueue stores the entry as given. Re-enqueueing a taken entry keeps its
// original submission time.
func (q *Memory) Enqueue(_ context.Context, order model.PendingOrder) error {
	if order.Origin != q.origin {
		return fmt.Errorf("%w: %s order in %s queue", domainErrors.ErrValidation, order.Origin, q.origin)
	}
	if order.ID == "" {
		return fmt.Errorf("%w: pending order id is empty", domainErrors.ErrValidation)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.items[order.ID]; exists {
		return domainErrors.ErrAlreadyExists
	}
	q.items[order.ID] = order.Clone()
	return nil
}

// ListPending purges expired entries and returns the rest oldest first.
func (q *Memory) ListPending(_ context.Context) ([]model.PendingOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	q.sweepLocked(now, q.ttl)

	result := make([]model.PendingOrder, 0, len(q.items))
	for _, p := range q.items {
		result = append(result, p.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})
	return result, nil
}

// Peek returns a copy of a live entry.
func (q *Memory) Peek(_ context.Context, id string) (*model.PendingOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.liveLocked(id)
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	c := p.Clone()
	return &c, nil
}

// TakeAtomically removes the entry under the queue lock.
func (q *Memory) TakeAtomically(_ context.Context, id string) (*model.PendingOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.liveLocked(id)
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	delete(q.items, id)
	return &p, nil
}

// Remove drops the entry without returning it.
func (q *Memory) Remove(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.liveLocked(id); !ok {
		return domainErrors.ErrNotFound
	}
	delete(q.items, id)
	return nil
}

// ExpireOlderThan drops entries whose wait time exceeds age.
func (q *Memory) ExpireOlderThan(_ context.Context, age time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sweepLocked(q.now(), age), nil
}

// Len reports the number of stored entries, expired ones included.
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Memory) liveLocked(id string) (model.PendingOrder, bool) {
	p, ok := q.items[id]
	if !ok {
		return model.PendingOrder{}, false
	}
	if p.Expired(q.now(), q.ttl) {
		delete(q.items, id)
		return model.PendingOrder{}, false
	}
	return p, true
}

func (q *Memory) sweepLocked(now time.Time, age time.Duration) int {
	removed := 0
	for id, p := range q.items {
		if p.Expired(now, age) {
			delete(q.items, id)
			removed++
		}
	}
	return removed
}
