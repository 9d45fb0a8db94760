package auth

import "time"

// Claims identify the staff member behind a bearer token.
type Claims struct {
	StaffID int64
	Role    string
}

type Strategy interface {
	IssueToken(claims Claims) (string, error)
	ParseToken(token string) (Claims, error)
	Name() string
}

type Options struct {
	TTL time.Duration
	Now func() time.Time
}
