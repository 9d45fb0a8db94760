package dto

import "time"

// AuthRequest describes login/password payload.
type AuthRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token of an authenticated staff member.
type LoginResponse struct {
	Token   string `json:"token"`
	StaffID int64  `json:"staff_id"`
	Role    string `json:"role"`
}

// RegisterStaffRequest creates a staff account. Role defaults to CASHIER.
type RegisterStaffRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// StaffResponse describes a staff account without its credentials.
type StaffResponse struct {
	ID        int64     `json:"id"`
	Login     string    `json:"login"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
