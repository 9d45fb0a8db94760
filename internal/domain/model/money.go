package model

import (
	"fmt"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
)

// Cents converts an amount to integer minor units, rounding half away from zero.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// checkCents rejects amounts finer than one cent. Stored amounts are whole
// cents, and Cents would otherwise round the difference away.
func checkCents(amount decimal.Decimal, what string) error {
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: %s %s has more than two decimal places", domainErrors.ErrValidation, what, amount.String())
	}
	return nil
}

// FromCents converts integer minor units back to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
