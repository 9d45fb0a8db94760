package model

import "time"

// IdempotencyState tracks whether the guarded operation finished.
type IdempotencyState string

const (
	IdempotencyInFlight  IdempotencyState = "IN_FLIGHT"
	IdempotencyCompleted IdempotencyState = "COMPLETED"
)

// IdempotencyRecord stores the outcome of a request keyed by client key and
// operation signature.
type IdempotencyRecord struct {
	Key       string
	Operation string
	State     IdempotencyState
	Payload   []byte
	CreatedAt time.Time
}
