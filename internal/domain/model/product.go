package model

import "github.com/shopspring/decimal"

// Product is a catalog entry.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Available bool
}
