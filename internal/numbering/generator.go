// Package numbering assigns sequential customer facing order numbers.
package numbering

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
)

// DefaultAttempts bounds the optimistic numbering loop.
const DefaultAttempts = 3

// Source reads the highest committed order number.
type Source interface {
	MaxNumber(ctx context.Context) (model.OrderNumber, error)
}

// Generator computes max+1 without locks and relies on the unique constraint
// of committed numbers to detect races. A lost race reruns the whole attempt.
type Generator struct {
	attempts int
	logger   *zap.Logger
}

// NewGenerator creates a generator retrying up to attempts times.
func NewGenerator(attempts int, logger *zap.Logger) *Generator {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{attempts: attempts, logger: logger}
}

// Attempts returns the configured retry bound.
func (g *Generator) Attempts() int {
	return g.attempts
}

// Next returns the number following the current maximum, 1 for the first order.
func (g *Generator) Next(ctx context.Context, src Source) (model.OrderNumber, error) {
	current, err := src.MaxNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("read max order number: %w", err)
	}
	return current + 1, nil
}

// Run executes attempt until it stops failing with ErrDuplicateOrderNumber.
// Any other outcome is returned as is.
func (g *Generator) Run(ctx context.Context, attempt func(ctx context.Context) error) error {
	for i := 1; i <= g.attempts; i++ {
		err := attempt(ctx)
		if !errors.Is(err, domainErrors.ErrDuplicateOrderNumber) {
			return err
		}
		g.logger.Warn("order number taken concurrently, retrying",
			zap.Int("attempt", i),
			zap.Int("max_attempts", g.attempts),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return fmt.Errorf("%w: %d attempts", domainErrors.ErrExhaustedRetries, g.attempts)
}
