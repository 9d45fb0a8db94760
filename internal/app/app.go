package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/adapter/notify"
	"github.com/polkiloo/snackbar/internal/config"
	"github.com/polkiloo/snackbar/internal/domain/repository"
	"github.com/polkiloo/snackbar/internal/idempotency"
	"github.com/polkiloo/snackbar/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewSnackBarFacade,
		newGuard,
		newHTTPServer,
		newEventDispatcher,
	),
	fx.Invoke(registerLifecycle),
)

type guardParams struct {
	fx.In

	Repos  repository.Factory
	Config *config.Config
	Logger *zap.Logger
}

func newGuard(p guardParams) *idempotency.Guard {
	return idempotency.NewGuard(p.Repos.Idempotency(), p.Logger.Named("idempotency"), idempotency.Options{
		Wait:  p.Config.IdempotencyWait,
		Lease: p.Config.IdempotencyLease,
	})
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Repos     repository.Factory
	Publisher notify.Publisher
	Config    *config.Config
	Logger    *zap.Logger
}

func newEventDispatcher(p workerParams) *worker.EventDispatcher {
	return worker.NewEventDispatcher(
		p.Repos.Events(),
		p.Publisher,
		p.Config.EventPollInterval,
		p.Config.EventBatchSize,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *zap.Logger
	Server     *http.Server
	Worker     *worker.EventDispatcher
	Facade     *SnackBarFacade
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if p.Config.BootstrapLogin != "" {
				if err := p.Facade.BootstrapManager(ctx, p.Config.BootstrapLogin, p.Config.BootstrapPassword); err != nil {
					return err
				}
			}
			p.Logger.Info("starting snackbar", zap.String("addr", p.Server.Addr))
			// the start context is canceled once startup completes
			p.Worker.Start(context.WithoutCancel(ctx))
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", zap.Error(err))
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Worker.Stop()
			p.Logger.Info("snackbar stopped")
			return nil
		},
	})
}
