// Package notify delivers order lifecycle events to subscribers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

const publishTimeout = 10 * time.Second

// Publisher sends one committed order event.
type Publisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
	Close() error
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

var dial = func(url string) (channel, io.Closer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn, nil
}

// AMQPPublisher publishes events to a durable fanout exchange. The event type
// is used as routing key so topic bindings keep working if the exchange kind
// changes.
type AMQPPublisher struct {
	ch       channel
	conn     io.Closer
	exchange string
	logger   *zap.Logger
}

// NewAMQPPublisher connects to the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	ch, conn, err := dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}
	p, err := newAMQPPublisher(ch, conn, exchange, logger)
	if err != nil {
		_ = ch.Close()
		if conn != nil {
			_ = conn.Close()
		}
		return nil, err
	}
	return p, nil
}

func newAMQPPublisher(ch channel, conn io.Closer, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{ch: ch, conn: conn, exchange: exchange, logger: logger.Named("notify")}, nil
}

// Publish sends the event payload as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    strconv.FormatInt(event.ID, 10),
		Type:         string(event.Type),
		Timestamp:    event.CreatedAt,
		Body:         event.Payload,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.logger.Debug("event published",
		zap.Int64("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Int("size", len(event.Payload)),
	)
	return nil
}

// Close releases the channel and the connection.
func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}

// LogPublisher writes events to the log. It stands in when no broker is
// configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.Named("notify")}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event model.OrderEvent) error {
	fields := []zap.Field{
		zap.Int64("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.ByteString("payload", event.Payload),
	}
	if event.OrderID != nil {
		fields = append(fields, zap.Int64("order_id", *event.OrderID))
	}
	if event.PendingID != "" {
		fields = append(fields, zap.String("pending_id", event.PendingID))
	}
	p.logger.Info("order event", fields...)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
