package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
)

// PaymentMethod enumerates accepted tenders.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "CASH"
	PaymentCard    PaymentMethod = "CARD"
	PaymentPix     PaymentMethod = "PIX"
	PaymentVoucher PaymentMethod = "VOUCHER"
)

// Valid reports whether the method is known.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPix, PaymentVoucher:
		return true
	}
	return false
}

// ParsePaymentMethod accepts a method name in any letter case.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown payment method %q", domainErrors.ErrValidation, raw)
	}
	return m, nil
}

// PaymentEntry is one tender applied to an order. Tendered and Change are
// meaningful for cash only; other methods always have Tendered == Amount.
type PaymentEntry struct {
	ID        int64           `json:"id,omitempty"`
	SessionID int64           `json:"session_id,omitempty"`
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Tendered  decimal.Decimal `json:"tendered"`
	Change    decimal.Decimal `json:"change"`
}

// NewPaymentEntry validates a tender. A zero tendered value on a cash
// payment means the exact amount was handed over.
func NewPaymentEntry(method PaymentMethod, amount, tendered decimal.Decimal) (PaymentEntry, error) {
	if !method.Valid() {
		return PaymentEntry{}, fmt.Errorf("%w: unknown payment method %q", domainErrors.ErrValidation, method)
	}
	if !amount.IsPositive() {
		return PaymentEntry{}, fmt.Errorf("%w: payment amount must be positive", domainErrors.ErrValidation)
	}
	if err := checkCents(amount, "payment amount"); err != nil {
		return PaymentEntry{}, err
	}
	entry := PaymentEntry{Method: method, Amount: amount, Tendered: amount, Change: decimal.Zero}
	if method != PaymentCash {
		return entry, nil
	}
	return entry.WithTendered(tendered)
}

// WithTendered returns a copy of a cash entry with tendered and change recomputed.
func (p PaymentEntry) WithTendered(tendered decimal.Decimal) (PaymentEntry, error) {
	if p.Method != PaymentCash {
		return PaymentEntry{}, fmt.Errorf("%w: tendered amount applies to cash only", domainErrors.ErrValidation)
	}
	if err := checkCents(tendered, "tendered amount"); err != nil {
		return PaymentEntry{}, err
	}
	if tendered.IsZero() {
		tendered = p.Amount
	}
	if tendered.LessThan(p.Amount) {
		return PaymentEntry{}, fmt.Errorf("%w: tendered %s is less than amount %s", domainErrors.ErrValidation, tendered.StringFixed(2), p.Amount.StringFixed(2))
	}
	p.Tendered = tendered
	p.Change = tendered.Sub(p.Amount)
	return p, nil
}

// SumPayments adds up payment amounts.
func SumPayments(payments []PaymentEntry) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
