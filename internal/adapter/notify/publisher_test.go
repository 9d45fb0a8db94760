package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

type declared struct {
	name    string
	kind    string
	durable bool
}

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	deadline bool
}

type fakeChannel struct {
	mu         sync.Mutex
	declareErr error
	publishErr error
	declared   []declared
	published  []published
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp091.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declared = append(c.declared, declared{name: name, kind: kind, durable: durable})
	return c.declareErr
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	_, ok := ctx.Deadline()
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg, deadline: ok})
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func sampleEvent() model.OrderEvent {
	id := int64(42)
	return model.OrderEvent{
		ID:        9,
		Type:      model.EventOrderAccepted,
		OrderID:   &id,
		PendingID: "p-1",
		Payload:   []byte(`{"order_id":42,"number":"0001"}`),
		CreatedAt: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestAMQPPublisherDeclaresFanoutExchange(t *testing.T) {
	ch := &fakeChannel{}
	_, err := newAMQPPublisher(ch, nil, "snackbar.orders", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, ch.declared, 1)
	assert.Equal(t, declared{name: "snackbar.orders", kind: "fanout", durable: true}, ch.declared[0])
}

func TestAMQPPublisherDeclareFailure(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := newAMQPPublisher(ch, nil, "snackbar.orders", zap.NewNop())
	require.ErrorContains(t, err, "declare exchange snackbar.orders")
}

func TestAMQPPublisherPublish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newAMQPPublisher(ch, nil, "snackbar.orders", zap.NewNop())
	require.NoError(t, err)

	event := sampleEvent()
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "snackbar.orders", got.exchange)
	assert.Equal(t, "order.accepted", got.key)
	assert.True(t, got.deadline)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "9", got.msg.MessageId)
	assert.Equal(t, "order.accepted", got.msg.Type)
	assert.Equal(t, event.CreatedAt, got.msg.Timestamp)
	assert.JSONEq(t, string(event.Payload), string(got.msg.Body))
}

func TestAMQPPublisherPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	ch := &fakeChannel{publishErr: boom}
	p, err := newAMQPPublisher(ch, nil, "x", zap.NewNop())
	require.NoError(t, err)

	err = p.Publish(context.Background(), sampleEvent())
	require.ErrorIs(t, err, boom)
}

func TestAMQPPublisherClose(t *testing.T) {
	ch := &fakeChannel{}
	connErr := errors.New("already closed")
	p, err := newAMQPPublisher(ch, closerFunc(func() error { return connErr }), "x", zap.NewNop())
	require.NoError(t, err)

	err = p.Close()
	require.ErrorIs(t, err, connErr)
	assert.True(t, ch.closed)
}

func TestNewAMQPPublisherDialFailure(t *testing.T) {
	orig := dial
	t.Cleanup(func() { dial = orig })
	dial = func(string) (channel, io.Closer, error) {
		return nil, nil, errors.New("connection refused")
	}

	_, err := NewAMQPPublisher("amqp://localhost", "x", zap.NewNop())
	require.ErrorContains(t, err, "connect amqp")
}

func TestNewAMQPPublisherClosesOnDeclareFailure(t *testing.T) {
	orig := dial
	t.Cleanup(func() { dial = orig })
	ch := &fakeChannel{declareErr: errors.New("precondition failed")}
	connClosed := false
	dial = func(string) (channel, io.Closer, error) {
		return ch, closerFunc(func() error { connClosed = true; return nil }), nil
	}

	_, err := NewAMQPPublisher("amqp://localhost", "x", zap.NewNop())
	require.Error(t, err)
	assert.True(t, ch.closed)
	assert.True(t, connClosed)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())

	entries := logs.FilterMessage("order event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "order.accepted", fields["type"])
	assert.Equal(t, int64(42), fields["order_id"])
	assert.Equal(t, "p-1", fields["pending_id"])
}
