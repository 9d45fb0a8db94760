package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/numbering"
	"github.com/polkiloo/snackbar/internal/queue"
	testhelpers "github.com/polkiloo/snackbar/internal/test"
)

const (
	burgerID int64 = 1
	juiceID  int64 = 2
	baconID  int64 = 3
	soldOut  int64 = 4

	cashierID int64 = 7
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store      *testhelpers.MemoryStore
	clock      *testClock
	table      *queue.Memory
	submission *SubmissionUseCase
	acceptance *AcceptanceUseCase
	orders     *OrderUseCase
	sessions   *SessionUseCase
	ledger     *LedgerUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC)}
	store := testhelpers.NewMemoryStore()
	store.Now = clock.Now
	store.AddProduct(model.Product{ID: burgerID, Name: "X-Burger", Price: decimal.RequireFromString("12.50"), Available: true})
	store.AddProduct(model.Product{ID: juiceID, Name: "Orange juice", Price: decimal.RequireFromString("18.00"), Available: true})
	store.AddProduct(model.Product{ID: baconID, Name: "Bacon", Price: decimal.RequireFromString("1.00"), Available: true})
	store.AddProduct(model.Product{ID: soldOut, Name: "Acai", Price: decimal.RequireFromString("9.00"), Available: false})

	logger := zap.NewNop()
	table := queue.NewMemory(model.OriginTable, 30*time.Minute, clock.Now)
	selector := queue.NewSelector(table)

	f := &fixture{
		store:      store,
		clock:      clock,
		table:      table,
		submission: NewSubmissionUseCase(store, selector, logger),
		acceptance: NewAcceptanceUseCase(store, store, selector, numbering.NewGenerator(numbering.DefaultAttempts, logger), logger),
		orders:     NewOrderUseCase(store, store, logger),
		sessions:   NewSessionUseCase(store, store, logger),
		ledger:     NewLedgerUseCase(store, store, logger),
	}
	f.submission.now = clock.Now
	f.acceptance.now = clock.Now
	f.orders.now = clock.Now
	f.sessions.now = clock.Now
	f.ledger.now = clock.Now
	return f
}

func (f *fixture) startSession(t *testing.T, opening string) *model.WorkSession {
	t.Helper()
	s, err := f.sessions.Start(context.Background(), decimal.RequireFromString(opening), cashierID)
	require.NoError(t, err)
	return s
}

func (f *fixture) submitTable(t *testing.T, items ...ItemRequest) *model.PendingOrder {
	t.Helper()
	if len(items) == 0 {
		items = []ItemRequest{{ProductID: burgerID, Quantity: 2}}
	}
	p, err := f.submission.SubmitTable(context.Background(), TableSubmission{TableRef: "T4", CustomerName: "Ana", Items: items})
	require.NoError(t, err)
	return p
}

func (f *fixture) submitKiosk(t *testing.T, payments ...PaymentRequest) *model.PendingOrder {
	t.Helper()
	if len(payments) == 0 {
		payments = []PaymentRequest{cash("18.00", "20.00")}
	}
	p, err := f.submission.SubmitKiosk(context.Background(), KioskSubmission{
		CustomerName: "Bia",
		Items:        []ItemRequest{{ProductID: juiceID, Quantity: 1}},
		Payments:     payments,
	})
	require.NoError(t, err)
	return p
}

func cash(amount, tendered string) PaymentRequest {
	return PaymentRequest{Method: model.PaymentCash, Amount: decimal.RequireFromString(amount), Tendered: decimal.RequireFromString(tendered)}
}

func card(amount string) PaymentRequest {
	return PaymentRequest{Method: model.PaymentCard, Amount: decimal.RequireFromString(amount)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got.StringFixed(2))
}
