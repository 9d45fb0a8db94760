package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

func TestAcceptTableOrder(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t, "100.00")
	ctx := context.Background()

	p := f.submitTable(t)
	order, err := f.acceptance.Accept(ctx, model.OriginTable, p.ID, cashierID)
	require.NoError(t, err)

	assert.Equal(t, "0001", order.Number.String())
	assert.Equal(t, model.OrderStatusPending, order.Status)
	requireAmount(t, "25.00", order.Total)
	assert.Equal(t, session.ID, order.SessionID)
	assert.Equal(t, "T4", order.TableRef)
	assert.Empty(t, order.Payments)
	assert.Equal(t, 0, f.table.Len())

	events := f.store.AllEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventOrderAccepted, events[0].Type)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "0001", payload["number"])

	second := f.submitTable(t)
	order, err = f.acceptance.Accept(ctx, model.OriginTable, second.ID, cashierID)
	require.NoError(t, err)
	assert.Equal(t, "0002", order.Number.String())
}

func TestAcceptKioskCashOrder(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t, "50.00")
	ctx := context.Background()

	p := f.submitKiosk(t)
	order, err := f.acceptance.Accept(ctx, model.OriginKiosk, p.ID, cashierID)
	require.NoError(t, err)

	requireAmount(t, "18.00", order.Total)
	require.Len(t, order.Payments, 1)
	requireAmount(t, "20.00", order.Payments[0].Tendered)
	requireAmount(t, "2.00", order.Payments[0].Change)
	assert.Equal(t, session.ID, order.Payments[0].SessionID)
	assert.Equal(t, 0, f.store.KioskLen())

	var sales, change []model.CashMovement
	for _, m := range f.store.AllMovements() {
		switch m.Kind {
		case model.MovementSaleCash:
			sales = append(sales, m)
		case model.MovementChangeCash:
			change = append(change, m)
		}
	}
	require.Len(t, sales, 1)
	require.Len(t, change, 1)
	requireAmount(t, "18.00", sales[0].Amount)
	requireAmount(t, "-2.00", change[0].Amount)
	require.NotNil(t, sales[0].OrderID)
	assert.Equal(t, order.ID, *sales[0].OrderID)

	rec, err := f.ledger.Reconciliation(ctx, session.ID)
	require.NoError(t, err)
	requireAmount(t, "66.00", rec.Expected)
}

func TestAcceptIsAtMostOnce(t *testing.T) {
	for _, origin := range []model.Origin{model.OriginTable, model.OriginKiosk} {
		t.Run(string(origin), func(t *testing.T) {
			f := newFixture(t)
			f.startSession(t, "0")

			var p *model.PendingOrder
			if origin == model.OriginTable {
				p = f.submitTable(t)
			} else {
				p = f.submitKiosk(t)
			}

			var won, lost atomic.Int32
			var g errgroup.Group
			for i := 0; i < 16; i++ {
				g.Go(func() error {
					_, err := f.acceptance.Accept(context.Background(), origin, p.ID, cashierID)
					switch {
					case err == nil:
						won.Add(1)
					case errors.Is(err, domainErrors.ErrNotFound):
						lost.Add(1)
					default:
						return err
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())
			assert.EqualValues(t, 1, won.Load())
			assert.EqualValues(t, 15, lost.Load())
			assert.Len(t, f.store.AllOrders(), 1)
		})
	}
}

func TestConcurrentAcceptsGetDistinctNumbers(t *testing.T) {
	f := newFixture(t)
	f.startSession(t, "0")

	const n = 20
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.submitTable(t).ID
	}

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := f.acceptance.Accept(context.Background(), model.OriginTable, id, cashierID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[model.OrderNumber]bool)
	for _, o := range f.store.AllOrders() {
		assert.False(t, seen[o.Number], "number %s assigned twice", o.Number)
		seen[o.Number] = true
	}
	assert.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[model.OrderNumber(i)], "number %d missing", i)
	}
}

func TestAcceptRetriesLostNumberRace(t *testing.T) {
	f := newFixture(t)
	f.startSession(t, "0")
	p := f.submitKiosk(t)

	calls := 0
	f.store.BeforeOrderCreate = func(*model.Order) error {
		calls++
		if calls == 1 {
			return domainErrors.ErrDuplicateOrderNumber
		}
		return nil
	}
	commitsBefore := f.store.Commits()

	order, err := f.acceptance.Accept(context.Background(), model.OriginKiosk, p.ID, cashierID)
	require.NoError(t, err)
	assert.Equal(t, "0001", order.Number.String())
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, f.store.Rollbacks())
	assert.Equal(t, commitsBefore+1, f.store.Commits())
}

func TestAcceptExhaustedRetriesRestoresPending(t *testing.T) {
	for _, origin := range []model.Origin{model.OriginTable, model.OriginKiosk} {
		t.Run(string(origin), func(t *testing.T) {
			f := newFixture(t)
			f.startSession(t, "0")
			var p *model.PendingOrder
			if origin == model.OriginTable {
				p = f.submitTable(t)
			} else {
				p = f.submitKiosk(t)
			}
			f.store.BeforeOrderCreate = func(*model.Order) error { return domainErrors.ErrDuplicateOrderNumber }

			_, err := f.acceptance.Accept(context.Background(), origin, p.ID, cashierID)
			require.ErrorIs(t, err, domainErrors.ErrExhaustedRetries)

			restored, err := f.submission.Peek(context.Background(), origin, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p.SubmittedAt, restored.SubmittedAt)
			assert.Empty(t, f.store.AllOrders())
		})
	}
}

func TestAcceptPaymentMismatchConsumesPending(t *testing.T) {
	f := newFixture(t)
	f.startSession(t, "0")
	ctx := context.Background()

	p := f.submitKiosk(t, cash("10.00", "10.00"), card("5.00"))
	_, err := f.acceptance.Accept(ctx, model.OriginKiosk, p.ID, cashierID)
	require.ErrorIs(t, err, domainErrors.ErrPaymentMismatch)

	assert.Equal(t, 0, f.store.KioskLen())
	assert.Empty(t, f.store.AllOrders())
	_, err = f.acceptance.Accept(ctx, model.OriginKiosk, p.ID, cashierID)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)

	events := f.store.AllEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventOrderRejected, events[0].Type)
	assert.Contains(t, string(events[0].Payload), mismatchReason)
	for _, m := range f.store.AllMovements() {
		assert.NotEqual(t, model.MovementSaleCash, m.Kind)
	}
}

func TestAcceptWithoutSessionRestoresTableEntry(t *testing.T) {
	f := newFixture(t)
	f.startSession(t, "0")
	p := f.submitTable(t)
	_, err := f.sessions.Close(context.Background(), dec("0"), cashierID)
	require.NoError(t, err)

	_, err = f.acceptance.Accept(context.Background(), model.OriginTable, p.ID, cashierID)
	require.ErrorIs(t, err, domainErrors.ErrNoActiveSession)
	assert.Equal(t, 1, f.table.Len())
}

func TestAcceptStorageFailureRestoresTableEntry(t *testing.T) {
	f := newFixture(t)
	f.startSession(t, "0")
	p := f.submitTable(t)
	f.store.Fail = failOn("events.append", errors.New("disk full"))

	_, err := f.acceptance.Accept(context.Background(), model.OriginTable, p.ID, cashierID)
	require.Error(t, err)
	assert.Equal(t, 1, f.table.Len())
	assert.Empty(t, f.store.AllOrders())
}

func TestAcceptRejectsUnknownOriginAndMissingEntry(t *testing.T) {
	f := newFixture(t)
	f.startSession(t, "0")

	_, err := f.acceptance.Accept(context.Background(), model.Origin("DRIVE"), "x", cashierID)
	require.ErrorIs(t, err, domainErrors.ErrValidation)
	_, err = f.acceptance.Accept(context.Background(), model.OriginTable, "missing", cashierID)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
	_, err = f.acceptance.Accept(context.Background(), model.OriginKiosk, "missing", cashierID)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}

func TestReject(t *testing.T) {
	for _, origin := range []model.Origin{model.OriginTable, model.OriginKiosk} {
		t.Run(string(origin), func(t *testing.T) {
			f := newFixture(t)
			f.startSession(t, "0")
			ctx := context.Background()
			var p *model.PendingOrder
			if origin == model.OriginTable {
				p = f.submitTable(t)
			} else {
				p = f.submitKiosk(t)
			}

			rejected, err := f.acceptance.Reject(ctx, origin, p.ID, cashierID, "out of bread")
			require.NoError(t, err)
			assert.Equal(t, p.ID, rejected.ID)
			requireAmount(t, p.Total().StringFixed(2), rejected.Total())

			_, err = f.acceptance.Reject(ctx, origin, p.ID, cashierID, "again")
			require.ErrorIs(t, err, domainErrors.ErrNotFound)
			_, err = f.acceptance.Accept(ctx, origin, p.ID, cashierID)
			require.ErrorIs(t, err, domainErrors.ErrNotFound)

			assert.Empty(t, f.store.AllOrders())
			events := f.store.AllEvents()
			require.Len(t, events, 1)
			assert.Equal(t, model.EventOrderRejected, events[0].Type)
			assert.Contains(t, string(events[0].Payload), "out of bread")
		})
	}
}
