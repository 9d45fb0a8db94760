package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/polkiloo/snackbar/internal/config"
)

func TestNewPasswordHasher(t *testing.T) {
	cases := []struct {
		cost, want int
	}{
		{0, bcrypt.DefaultCost},
		{bcrypt.MinCost, bcrypt.MinCost},
		{12, 12},
		{bcrypt.MaxCost + 1, bcrypt.DefaultCost},
	}
	for _, tc := range cases {
		hasher := newPasswordHasher(authParams{Config: &config.Config{PasswordCost: tc.cost}})
		bcryptHasher, ok := hasher.(*BcryptHasher)
		if !ok {
			t.Fatalf("expected *BcryptHasher, got %T", hasher)
		}
		if bcryptHasher.cost != tc.want {
			t.Fatalf("cost %d: expected %d, got %d", tc.cost, tc.want, bcryptHasher.cost)
		}
	}
}

func TestNewTokenStrategy(t *testing.T) {
	strategy := newTokenStrategy(authParams{Config: &config.Config{JWTSecret: "top-secret", TokenTTL: 3 * time.Hour}})
	hmacStrategy, ok := strategy.(*HMACStrategy)
	if !ok {
		t.Fatalf("expected *HMACStrategy, got %T", strategy)
	}
	if string(hmacStrategy.secret) != "top-secret" {
		t.Fatalf("unexpected secret: %q", string(hmacStrategy.secret))
	}
	if hmacStrategy.ttl != 3*time.Hour {
		t.Fatalf("unexpected ttl: %s", hmacStrategy.ttl)
	}
}
