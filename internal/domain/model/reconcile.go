package model

import "github.com/shopspring/decimal"

// Reconciliation summarises the drawer of one session.
type Reconciliation struct {
	SessionID   int64            `json:"session_id"`
	Status      SessionStatus    `json:"status"`
	Opening     decimal.Decimal  `json:"opening"`
	Sales       decimal.Decimal  `json:"sales"`
	Change      decimal.Decimal  `json:"change"`
	Deposits    decimal.Decimal  `json:"deposits"`
	Withdrawals decimal.Decimal  `json:"withdrawals"`
	Expected    decimal.Decimal  `json:"expected"`
	Counted     *decimal.Decimal `json:"counted,omitempty"`
	Difference  *decimal.Decimal `json:"difference,omitempty"`
}

// Reconcile computes
//
//	expected = opening + sales - change + deposits - withdrawals
//
// Sale and change entries of canceled orders are left out. Difference is
// only set for closed sessions.
func Reconcile(session WorkSession, movements []CashMovement, canceled map[int64]bool) Reconciliation {
	r := Reconciliation{
		SessionID:   session.ID,
		Status:      session.Status,
		Opening:     session.OpeningFloat,
		Sales:       decimal.Zero,
		Change:      decimal.Zero,
		Deposits:    decimal.Zero,
		Withdrawals: decimal.Zero,
	}

	for _, m := range movements {
		if m.SessionID != session.ID {
			continue
		}
		switch m.Kind {
		case MovementSaleCash:
			if m.OrderID != nil && canceled[*m.OrderID] {
				continue
			}
			r.Sales = r.Sales.Add(m.Amount)
		case MovementChangeCash:
			if m.OrderID != nil && canceled[*m.OrderID] {
				continue
			}
			r.Change = r.Change.Sub(m.Amount)
		case MovementDeposit:
			r.Deposits = r.Deposits.Add(m.Amount)
		case MovementWithdrawal:
			r.Withdrawals = r.Withdrawals.Sub(m.Amount)
		}
	}

	r.Expected = r.Opening.Add(r.Sales).Sub(r.Change).Add(r.Deposits).Sub(r.Withdrawals)
	if session.Status == SessionClosed && session.ClosingCount != nil {
		counted := *session.ClosingCount
		diff := counted.Sub(r.Expected)
		r.Counted = &counted
		r.Difference = &diff
	}
	return r
}
