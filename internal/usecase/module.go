package usecase

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/config"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/numbering"
	"github.com/polkiloo/snackbar/internal/queue"
)

// Module provides core business use cases to the fx container.
var Module = fx.Options(
	fx.Provide(
		newTableQueue,
		queue.NewSelector,
		newNumberGenerator,
	),
	fx.Provide(
		NewAuthUseCase,
		NewSubmissionUseCase,
		NewAcceptanceUseCase,
		NewOrderUseCase,
		NewSessionUseCase,
		NewLedgerUseCase,
	),
)

func newTableQueue(cfg *config.Config) *queue.Memory {
	return queue.NewMemory(model.OriginTable, cfg.PendingOrderTTL, nil)
}

func newNumberGenerator(cfg *config.Config, logger *zap.Logger) *numbering.Generator {
	return numbering.NewGenerator(cfg.NumberingAttempts, logger.Named("numbering"))
}
