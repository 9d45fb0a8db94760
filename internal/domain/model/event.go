package model

import "time"

// EventType names an order lifecycle notification.
type EventType string

const (
	EventOrderAccepted      EventType = "order.accepted"
	EventOrderRejected      EventType = "order.rejected"
	EventOrderStatusChanged EventType = "order.status_changed"
)

// OrderEvent is an outbox row published after the producing transaction commits.
type OrderEvent struct {
	ID        int64
	Type      EventType
	OrderID   *int64
	PendingID string
	Payload   []byte
	CreatedAt time.Time
}
