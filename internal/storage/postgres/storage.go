package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/domain/repository"
)

const txAttempts = 2

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxPool interface {
	querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage is the repository factory backed by PostgreSQL.
type Storage struct {
	pool       pgxPool
	logger     *zap.Logger
	pendingTTL time.Duration
	now        func() time.Time
}

// Options tunes storage behaviour that depends on configuration.
type Options struct {
	PendingTTL time.Duration
	Now        func() time.Time
}

var (
	_ repository.Factory    = (*Storage)(nil)
	_ repository.Transactor = (*Storage)(nil)
)

// New connects to the database and applies pending migrations.
func New(ctx context.Context, dsn string, logger *zap.Logger, opts Options) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newStorageWithPool(pool, logger, opts), nil
}

func newStorageWithPool(pool pgxPool, logger *zap.Logger, opts Options) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Storage{pool: pool, logger: logger, pendingTTL: opts.PendingTTL, now: now}
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Storage) Staff() repository.StaffRepository             { return s.bind(s.pool).Staff() }
func (s *Storage) Orders() repository.OrderRepository            { return s.bind(s.pool).Orders() }
func (s *Storage) KioskQueue() repository.PendingQueue           { return s.bind(s.pool).KioskQueue() }
func (s *Storage) Idempotency() repository.IdempotencyRepository { return s.bind(s.pool).Idempotency() }
func (s *Storage) Ledger() repository.LedgerRepository           { return s.bind(s.pool).Ledger() }
func (s *Storage) Sessions() repository.SessionRepository        { return s.bind(s.pool).Sessions() }
func (s *Storage) Catalog() repository.CatalogRepository         { return s.bind(s.pool).Catalog() }
func (s *Storage) Events() repository.EventRepository            { return s.bind(s.pool).Events() }

// WithinTransaction runs fn with repositories bound to one transaction.
// Serialization failures and deadlocks are retried once with a fresh transaction.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(repository.Factory) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isRetryable(err) || ctx.Err() != nil {
			return err
		}
		s.logger.Warn("transaction conflict", zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}

func (s *Storage) runTx(ctx context.Context, fn func(repository.Factory) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error("rollback failed", zap.Error(rbErr))
			}
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(s.bind(tx))
}

func (s *Storage) bind(q querier) *factory {
	return &factory{q: q, storage: s}
}

type factory struct {
	q       querier
	storage *Storage
}

func (f *factory) Staff() repository.StaffRepository {
	return &staffRepository{q: f.q}
}

func (f *factory) Orders() repository.OrderRepository {
	return &orderRepository{q: f.q, now: f.storage.now}
}

func (f *factory) Idempotency() repository.IdempotencyRepository {
	return &idempotencyRepository{q: f.q}
}

func (f *factory) Ledger() repository.LedgerRepository {
	return &ledgerRepository{q: f.q}
}

func (f *factory) Sessions() repository.SessionRepository {
	return &sessionRepository{q: f.q}
}

func (f *factory) Catalog() repository.CatalogRepository {
	return &catalogRepository{q: f.q}
}

func (f *factory) Events() repository.EventRepository {
	return &eventRepository{q: f.q, now: f.storage.now}
}

func (f *factory) KioskQueue() repository.PendingQueue {
	return &kioskQueue{q: f.q, ttl: f.storage.pendingTTL, now: f.storage.now}
}

func pgErrorCode(err error) (string, string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", "", false
	}
	return pgErr.Code, pgErr.ConstraintName, true
}

func isUniqueViolation(err error, constraint string) bool {
	code, name, ok := pgErrorCode(err)
	if !ok || code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || name == constraint
}

func isRetryable(err error) bool {
	code, _, ok := pgErrorCode(err)
	return ok && (code == pgerrcode.SerializationFailure || code == pgerrcode.DeadlockDetected)
}
