package repository

import "context"

// Factory describes access to different domain repositories.
type Factory interface {
	Staff() StaffRepository
	Orders() OrderRepository
	KioskQueue() PendingQueue
	Idempotency() IdempotencyRepository
	Ledger() LedgerRepository
	Sessions() SessionRepository
	Catalog() CatalogRepository
	Events() EventRepository
}

// Transactor runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(Factory) error) error
}
