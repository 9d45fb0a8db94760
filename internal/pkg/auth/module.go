package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/snackbar/internal/config"
)

// Module provides the staff password hasher and token strategy.
var Module = fx.Options(
	fx.Provide(newPasswordHasher),
	fx.Provide(newTokenStrategy),
)

type authParams struct {
	fx.In

	Config *config.Config
}

// newPasswordHasher uses the configured bcrypt cost; zero keeps the default.
func newPasswordHasher(p authParams) PasswordHasher {
	return NewBcryptHasher(p.Config.PasswordCost)
}

func newTokenStrategy(p authParams) Strategy {
	return NewHMACStrategy(p.Config.JWTSecret, Options{TTL: p.Config.TokenTTL})
}
