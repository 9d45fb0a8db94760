package dto

import "github.com/shopspring/decimal"

// ShopStatusResponse is the customer facing open/paused/closed flag.
type ShopStatusResponse struct {
	Status string `json:"status"`
}

// StartSessionRequest opens the till with a float.
type StartSessionRequest struct {
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

// CloseSessionRequest ends the session with the counted drawer.
type CloseSessionRequest struct {
	Counted decimal.Decimal `json:"counted"`
}

// MovementRequest books a manual withdrawal or deposit.
type MovementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}
