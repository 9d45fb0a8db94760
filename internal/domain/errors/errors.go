package errors

import "errors"

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")

	// ErrPaymentMismatch is returned when declared payments do not add up to the order total.
	ErrPaymentMismatch    = errors.New("payments do not match order total")
	ErrProductUnavailable = errors.New("product unavailable")

	ErrSessionAlreadyActive = errors.New("work session already active")
	ErrNoActiveSession      = errors.New("no active work session")
	ErrSessionNotClosed     = errors.New("work session not closed")
	ErrInvalidTransition    = errors.New("invalid state transition")

	// ErrDuplicateOrderNumber signals a lost race on the order number unique constraint.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrExhaustedRetries     = errors.New("order numbering retries exhausted")

	ErrIdempotencyInFlight = errors.New("request with the same idempotency key is in progress")
)
