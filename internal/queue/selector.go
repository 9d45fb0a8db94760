package queue

import (
	"fmt"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
)

// Selector picks the queue implementation serving an origin. Table orders
// live in memory, kiosk orders in the durable store behind the factory.
type Selector struct {
	table *Memory
}

// NewSelector wraps the in-process table queue.
func NewSelector(table *Memory) *Selector {
	return &Selector{table: table}
}

// Table exposes the in-process queue.
func (s *Selector) Table() *Memory {
	return s.table
}

// For returns the queue of origin, binding the durable queue to f so callers
// inside a transaction get the transactional view.
func (s *Selector) For(origin model.Origin, f repository.Factory) (repository.PendingQueue, error) {
	switch origin {
	case model.OriginTable:
		return s.table, nil
	case model.OriginKiosk:
		return f.KioskQueue(), nil
	}
	return nil, fmt.Errorf("%w: unknown origin %q", domainErrors.ErrValidation, origin)
}
