package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
)

// SessionStatus is the state of a work session.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionPaused SessionStatus = "PAUSED"
	SessionClosed SessionStatus = "CLOSED"
)

// ShopStatus is what customers see: open, paused or closed for orders.
type ShopStatus string

const (
	ShopOpen   ShopStatus = "OPEN"
	ShopPaused ShopStatus = "PAUSED"
	ShopClosed ShopStatus = "CLOSED"
)

// WorkSession is a shift during which the till is open.
type WorkSession struct {
	ID           int64            `json:"id"`
	Number       int              `json:"number"`
	BusinessDate time.Time        `json:"business_date"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
	Status       SessionStatus    `json:"status"`
	OpeningFloat decimal.Decimal  `json:"opening_float"`
	ClosingCount *decimal.Decimal `json:"closing_count,omitempty"`
	UserID       int64            `json:"user_id"`
}

// NewWorkSession opens a session numbered within its business day.
func NewWorkSession(number int, userID int64, opening decimal.Decimal, now time.Time) (*WorkSession, error) {
	if opening.IsNegative() {
		return nil, fmt.Errorf("%w: opening float must not be negative", domainErrors.ErrValidation)
	}
	if err := checkCents(opening, "opening float"); err != nil {
		return nil, err
	}
	if number <= 0 {
		return nil, fmt.Errorf("%w: session number must be positive", domainErrors.ErrValidation)
	}
	return &WorkSession{
		Number:       number,
		BusinessDate: BusinessDate(now),
		StartedAt:    now,
		Status:       SessionOpen,
		OpeningFloat: opening,
		UserID:       userID,
	}, nil
}

// RehydrateSession rebuilds a session from persisted state without touching
// any timestamps.
func RehydrateSession(id int64, number int, businessDate, startedAt time.Time, endedAt *time.Time, status SessionStatus, opening decimal.Decimal, counted *decimal.Decimal, userID int64) *WorkSession {
	return &WorkSession{
		ID:           id,
		Number:       number,
		BusinessDate: businessDate,
		StartedAt:    startedAt,
		EndedAt:      endedAt,
		Status:       status,
		OpeningFloat: opening,
		ClosingCount: counted,
		UserID:       userID,
	}
}

// BusinessDate truncates a timestamp to its calendar day in its own location.
func BusinessDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Active reports whether the session still accepts till movements.
func (s *WorkSession) Active() bool {
	return s.Status == SessionOpen || s.Status == SessionPaused
}

// ShopStatus maps the session state to the customer facing status.
func (s *WorkSession) ShopStatus() ShopStatus {
	if s == nil {
		return ShopClosed
	}
	switch s.Status {
	case SessionOpen:
		return ShopOpen
	case SessionPaused:
		return ShopPaused
	}
	return ShopClosed
}

// Pause stops new customer submissions.
func (s *WorkSession) Pause() error {
	if s.Status != SessionOpen {
		return fmt.Errorf("%w: cannot pause %s session", domainErrors.ErrInvalidTransition, s.Status)
	}
	s.Status = SessionPaused
	return nil
}

// Resume reopens a paused session.
func (s *WorkSession) Resume() error {
	if s.Status != SessionPaused {
		return fmt.Errorf("%w: cannot resume %s session", domainErrors.ErrInvalidTransition, s.Status)
	}
	s.Status = SessionOpen
	return nil
}

// Close ends the session with the counted drawer amount.
func (s *WorkSession) Close(counted decimal.Decimal, now time.Time) error {
	if !s.Active() {
		return fmt.Errorf("%w: session already closed", domainErrors.ErrInvalidTransition)
	}
	if counted.IsNegative() {
		return fmt.Errorf("%w: counted amount must not be negative", domainErrors.ErrValidation)
	}
	if err := checkCents(counted, "counted amount"); err != nil {
		return err
	}
	s.Status = SessionClosed
	s.EndedAt = &now
	s.ClosingCount = &counted
	return nil
}
