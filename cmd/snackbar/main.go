// Command snackbar runs the order acceptance and till reconciliation service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/snackbar/internal/di"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	app := fx.New(
		fx.Provide(func() context.Context { return ctx }),
		fx.StartTimeout(startTimeout),
		fx.StopTimeout(stopTimeout),
		di.Module(),
	)

	code := run(ctx, app)
	stop()
	os.Exit(code)
}
