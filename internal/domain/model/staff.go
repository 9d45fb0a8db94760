package model

import "time"

// StaffRole grants access to cash management operations.
type StaffRole string

const (
	RoleCashier StaffRole = "CASHIER"
	RoleManager StaffRole = "MANAGER"
)

// Valid reports whether the role is known.
func (r StaffRole) Valid() bool {
	return r == RoleCashier || r == RoleManager
}

// Staff represents an employee able to operate the till.
type Staff struct {
	ID           int64
	Login        string
	PasswordHash string
	Role         StaffRole
	CreatedAt    time.Time
}
