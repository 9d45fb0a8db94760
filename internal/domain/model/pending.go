package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingOrder is a customer submission waiting for staff acceptance.
type PendingOrder struct {
	ID           string         `json:"id"`
	Origin       Origin         `json:"origin"`
	TableRef     string         `json:"table_ref,omitempty"`
	CustomerID   *int64         `json:"customer_id,omitempty"`
	CustomerName string         `json:"customer_name,omitempty"`
	Items        []LineItem     `json:"items"`
	Payments     []PaymentEntry `json:"payments,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
}

// Total sums the item subtotals of the submission.
func (p PendingOrder) Total() decimal.Decimal {
	return ItemsTotal(p.Items)
}

// WaitTime is the time elapsed since submission.
func (p PendingOrder) WaitTime(now time.Time) time.Duration {
	return now.Sub(p.SubmittedAt)
}

// Expired reports whether the submission is older than ttl.
func (p PendingOrder) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && p.WaitTime(now) > ttl
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Clone returns a deep copy so queue storage is never aliased by callers.
func (p PendingOrder) Clone() PendingOrder {
	out := p
	out.Items = cloneItems(p.Items)
	out.CustomerID = cloneID(p.CustomerID)
	if p.Payments != nil {
		out.Payments = append([]PaymentEntry(nil), p.Payments...)
	}
	return out
}
