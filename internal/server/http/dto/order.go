package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/snackbar/internal/domain/model"
)

// ItemRequest is one product line of a submission.
type ItemRequest struct {
	ProductID   int64   `json:"product_id"`
	Quantity    int     `json:"quantity"`
	Notes       string  `json:"notes,omitempty"`
	AdditionIDs []int64 `json:"addition_ids,omitempty"`
}

// PaymentRequest declares one tender. Tendered is only read for cash.
type PaymentRequest struct {
	Method   string          `json:"method"`
	Amount   decimal.Decimal `json:"amount"`
	Tendered decimal.Decimal `json:"tendered"`
}

// TableSubmitRequest is posted from a table QR code.
type TableSubmitRequest struct {
	TableRef     string        `json:"table_ref"`
	CustomerID   *int64        `json:"customer_id"`
	CustomerName string        `json:"customer_name"`
	Items        []ItemRequest `json:"items"`
}

// KioskSubmitRequest is posted by the self-service kiosk after payment.
type KioskSubmitRequest struct {
	CustomerID   *int64           `json:"customer_id"`
	CustomerName string           `json:"customer_name"`
	Items        []ItemRequest    `json:"items"`
	Payments     []PaymentRequest `json:"payments"`
}

// PendingResponse describes an order waiting for staff.
type PendingResponse struct {
	ID           string               `json:"id"`
	Origin       string               `json:"origin"`
	TableRef     string               `json:"table_ref,omitempty"`
	CustomerID   *int64               `json:"customer_id,omitempty"`
	CustomerName string               `json:"customer_name,omitempty"`
	Items        []model.LineItem     `json:"items"`
	Payments     []model.PaymentEntry `json:"payments,omitempty"`
	Total        decimal.Decimal      `json:"total"`
	SubmittedAt  time.Time            `json:"submitted_at"`
	WaitSeconds  int64                `json:"wait_seconds"`
}

// SubmissionStatusResponse answers a customer polling for their order.
type SubmissionStatusResponse struct {
	PendingID   string         `json:"pending_id"`
	State       string         `json:"state"`
	WaitSeconds int64          `json:"wait_seconds,omitempty"`
	Order       *OrderResponse `json:"order,omitempty"`
}

// RejectRequest optionally explains a rejection.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// StatusRequest moves an order along its status graph.
type StatusRequest struct {
	Status string `json:"status"`
}

// SettleRequest pays a table order at the till.
type SettleRequest struct {
	Payments []PaymentRequest `json:"payments"`
}

// TenderedRequest corrects the cash handed over for an order.
type TenderedRequest struct {
	Tendered decimal.Decimal `json:"tendered"`
}

// OrderResponse describes a committed order.
type OrderResponse struct {
	ID           int64                `json:"id"`
	Number       string               `json:"number"`
	Origin       string               `json:"origin"`
	PendingID    string               `json:"pending_id"`
	Status       string               `json:"status"`
	TableRef     string               `json:"table_ref,omitempty"`
	CustomerID   *int64               `json:"customer_id,omitempty"`
	CustomerName string               `json:"customer_name,omitempty"`
	Items        []model.LineItem     `json:"items"`
	Payments     []model.PaymentEntry `json:"payments,omitempty"`
	Total        decimal.Decimal      `json:"total"`
	Paid         bool                 `json:"paid"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}
