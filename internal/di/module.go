package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/snackbar/internal/adapter/notify"
	"github.com/polkiloo/snackbar/internal/app"
	"github.com/polkiloo/snackbar/internal/config"
	"github.com/polkiloo/snackbar/internal/logger"
	"github.com/polkiloo/snackbar/internal/pkg/auth"
	"github.com/polkiloo/snackbar/internal/server/http/handlers"
	"github.com/polkiloo/snackbar/internal/server/http/router"
	"github.com/polkiloo/snackbar/internal/storage/postgres"
	"github.com/polkiloo/snackbar/internal/usecase"
)

// Module assembles the whole service graph. Extra options are appended last
// so callers can replace any component.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(func(s *postgres.Storage) handlers.HealthChecker { return s }),
		fx.Provide(func(f *app.SnackBarFacade) handlers.SnackBarFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
