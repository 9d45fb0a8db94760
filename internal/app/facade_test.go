package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/idempotency"
	"github.com/polkiloo/snackbar/internal/numbering"
	"github.com/polkiloo/snackbar/internal/queue"
	testhelpers "github.com/polkiloo/snackbar/internal/test"
	"github.com/polkiloo/snackbar/internal/usecase"
)

func newFacade(t *testing.T) (*SnackBarFacade, *testhelpers.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	store := testhelpers.NewMemoryStore()
	store.AddProduct(model.Product{ID: 1, Name: "Coxinha", Price: decimal.RequireFromString("7.50"), Available: true})

	selector := queue.NewSelector(queue.NewMemory(model.OriginTable, 30*time.Minute, nil))
	facade := NewSnackBarFacade(FacadeParams{
		Auth:        usecase.NewAuthUseCase(store, testhelpers.HasherStub{}, testhelpers.StrategyStub{}, logger),
		Submissions: usecase.NewSubmissionUseCase(store, selector, logger),
		Acceptance:  usecase.NewAcceptanceUseCase(store, store, selector, numbering.NewGenerator(numbering.DefaultAttempts, logger), logger),
		Orders:      usecase.NewOrderUseCase(store, store, logger),
		Sessions:    usecase.NewSessionUseCase(store, store, logger),
		Ledger:      usecase.NewLedgerUseCase(store, store, logger),
		Guard:       idempotency.NewGuard(store.Idempotency(), logger, idempotency.Options{Wait: time.Second, PollInterval: time.Millisecond}),
	})
	return facade, store
}

func key(value, op string) idempotency.Key {
	return idempotency.Key{Value: value, Operation: op}
}

func TestSnackBarFacadeAuth(t *testing.T) {
	facade, _ := newFacade(t)
	ctx := context.Background()

	require.NoError(t, facade.BootstrapManager(ctx, "boss", "secret"))
	require.NoError(t, facade.BootstrapManager(ctx, "boss", "secret"))

	staff, token, err := facade.Login(ctx, "boss", "secret")
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, staff.Role)

	claims, err := facade.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, claims.StaffID)
	assert.Equal(t, string(model.RoleManager), claims.Role)

	cashier, err := facade.RegisterStaff(ctx, "ana", "pw", model.RoleCashier)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCashier, cashier.Role)

	_, _, err = facade.Login(ctx, "ana", "wrong")
	require.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)
}

func TestSnackBarFacadeTableFlow(t *testing.T) {
	facade, _ := newFacade(t)
	ctx := context.Background()

	status, err := facade.ShopStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ShopClosed, status)

	session, err := facade.StartSession(ctx, decimal.RequireFromString("20"), 1)
	require.NoError(t, err)

	pending, err := facade.SubmitTable(ctx, key("", ""), usecase.TableSubmission{
		TableRef: "T1",
		Items:    []usecase.ItemRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	list, err := facade.PendingOrders(ctx, model.OriginTable)
	require.NoError(t, err)
	require.Len(t, list, 1)

	peeked, err := facade.PendingOrder(ctx, model.OriginTable, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, peeked.ID)

	order, err := facade.Accept(ctx, key("", ""), model.OriginTable, pending.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.OrderNumber(1), order.Number)

	lookup, err := facade.SubmissionStatus(ctx, model.OriginTable, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, usecase.SubmissionCommitted, lookup.State)

	_, err = facade.UpdateOrderStatus(ctx, order.ID, model.OrderStatusPreparing, 1)
	require.NoError(t, err)

	kitchen, err := facade.Orders(ctx, nil)
	require.NoError(t, err)
	require.Len(t, kitchen, 1)

	settleKey := key(testhelpers.RandomIdempotencyKey(), "POST /api/orders/:id/settle")
	settled, err := facade.Settle(ctx, settleKey, order.ID, []usecase.PaymentRequest{
		{Method: model.PaymentCash, Amount: decimal.RequireFromString("15"), Tendered: decimal.RequireFromString("20")},
	}, 1)
	require.NoError(t, err)
	require.Len(t, settled.Payments, 1)

	again, err := facade.Settle(ctx, settleKey, order.ID, []usecase.PaymentRequest{
		{Method: model.PaymentCash, Amount: decimal.RequireFromString("15"), Tendered: decimal.RequireFromString("20")},
	}, 1)
	require.NoError(t, err, "a repeated key must replay the stored result")
	assert.Equal(t, settled.Payments[0].ID, again.Payments[0].ID)

	corrected, err := facade.CorrectTendered(ctx, order.ID, decimal.RequireFromString("25"), 1)
	require.NoError(t, err)
	assert.True(t, corrected.Payments[0].Change.Equal(decimal.RequireFromString("10")))

	got, err := facade.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, got.Status)

	_, err = facade.RecordWithdrawal(ctx, decimal.RequireFromString("5"), "safe", 1)
	require.NoError(t, err)
	_, err = facade.RecordDeposit(ctx, decimal.RequireFromString("2"), "coins", 1)
	require.NoError(t, err)

	_, err = facade.PauseSession(ctx, 1)
	require.NoError(t, err)
	_, err = facade.ResumeSession(ctx, 1)
	require.NoError(t, err)
	current, err := facade.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.ID, current.ID)

	// 20 + 15 - 10 + 2 - 5
	rec, err := facade.Reconciliation(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, rec.Expected.Equal(decimal.RequireFromString("22")), "expected %s", rec.Expected)

	closed, err := facade.CloseSession(ctx, decimal.RequireFromString("21"), 1)
	require.NoError(t, err)
	require.NotNil(t, closed.Difference)
	assert.True(t, closed.Difference.Equal(decimal.RequireFromString("-1")))

	movements, err := facade.Movements(ctx, session.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, movements)

	dash, err := facade.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.ClosedSessions)
}

func TestSnackBarFacadeSubmitReplaysKey(t *testing.T) {
	facade, store := newFacade(t)
	ctx := context.Background()
	_, err := facade.StartSession(ctx, decimal.Zero, 1)
	require.NoError(t, err)

	in := usecase.KioskSubmission{
		Items: []usecase.ItemRequest{{ProductID: 1, Quantity: 1}},
		Payments: []usecase.PaymentRequest{
			{Method: model.PaymentCard, Amount: decimal.RequireFromString("7.50")},
		},
	}

	kioskKey := key(testhelpers.RandomIdempotencyKey(), "POST /api/pending/kiosk")
	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := facade.SubmitKiosk(ctx, kioskKey, in)
			errs[i] = err
			if p != nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, store.KioskLen())

	other, err := facade.SubmitKiosk(ctx, key(testhelpers.RandomIdempotencyKey(), "POST /api/pending/kiosk"), in)
	require.NoError(t, err)
	assert.NotEqual(t, ids[0], other.ID)
	assert.Equal(t, 2, store.KioskLen())
}

func TestSnackBarFacadeAcceptReplaysKey(t *testing.T) {
	facade, store := newFacade(t)
	ctx := context.Background()
	_, err := facade.StartSession(ctx, decimal.Zero, 1)
	require.NoError(t, err)
	pending, err := facade.SubmitTable(ctx, key("", ""), usecase.TableSubmission{
		TableRef: "T9",
		Items:    []usecase.ItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	k := key("accept-1", "POST /api/pending/table/"+pending.ID+"/accept")
	first, err := facade.Accept(ctx, k, model.OriginTable, pending.ID, 1)
	require.NoError(t, err)
	second, err := facade.Accept(ctx, k, model.OriginTable, pending.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.AllOrders(), 1)

	_, err = facade.Accept(ctx, key("accept-2", "POST /api/pending/table/"+pending.ID+"/accept"), model.OriginTable, pending.ID, 1)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}

func TestSnackBarFacadeAcceptKeyReusedForOtherPending(t *testing.T) {
	facade, store := newFacade(t)
	ctx := context.Background()
	_, err := facade.StartSession(ctx, decimal.Zero, 1)
	require.NoError(t, err)

	var ids []string
	for _, table := range []string{"T1", "T2"} {
		pending, err := facade.SubmitTable(ctx, key("", ""), usecase.TableSubmission{
			TableRef: table,
			Items:    []usecase.ItemRequest{{ProductID: 1, Quantity: 1}},
		})
		require.NoError(t, err)
		ids = append(ids, pending.ID)
	}

	first, err := facade.Accept(ctx, key("reused", "POST /api/pending/table/"+ids[0]+"/accept"), model.OriginTable, ids[0], 1)
	require.NoError(t, err)
	second, err := facade.Accept(ctx, key("reused", "POST /api/pending/table/"+ids[1]+"/accept"), model.OriginTable, ids[1], 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, ids[1], second.PendingID)
	assert.Len(t, store.AllOrders(), 2)
}

func TestSnackBarFacadeReject(t *testing.T) {
	facade, _ := newFacade(t)
	ctx := context.Background()
	_, err := facade.StartSession(ctx, decimal.Zero, 1)
	require.NoError(t, err)
	pending, err := facade.SubmitTable(ctx, key("", ""), usecase.TableSubmission{
		TableRef: "T2",
		Items:    []usecase.ItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	rejected, err := facade.Reject(ctx, model.OriginTable, pending.ID, 1, "out of stock")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, rejected.ID)

	_, err = facade.PendingOrder(ctx, model.OriginTable, pending.ID)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}
