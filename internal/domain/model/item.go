package model

import (
	"fmt"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
)

// Addition is an extra priced on top of a line item (extra cheese, sauce).
type Addition struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}

// LineItem is a product line of a pending or committed order.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     string          `json:"notes,omitempty"`
	Additions []Addition      `json:"additions,omitempty"`
}

// Subtotal is (unit price + additions) * quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	unit := i.UnitPrice
	for _, a := range i.Additions {
		unit = unit.Add(a.Price)
	}
	return unit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate checks quantity and price bounds of the item.
func (i LineItem) Validate() error {
	if i.Quantity <= 0 {
		return fmt.Errorf("%w: quantity of product %d must be positive", domainErrors.ErrValidation, i.ProductID)
	}
	if i.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: negative price for product %d", domainErrors.ErrValidation, i.ProductID)
	}
	for _, a := range i.Additions {
		if a.Price.IsNegative() {
			return fmt.Errorf("%w: negative addition price for product %d", domainErrors.ErrValidation, i.ProductID)
		}
	}
	return nil
}

// ItemsTotal sums item subtotals.
func ItemsTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.Additions != nil {
			out[i].Additions = append([]Addition(nil), it.Additions...)
		}
	}
	return out
}
