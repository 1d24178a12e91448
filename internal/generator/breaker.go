package generator

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// BreakerConfig tunes the circuit breaker around a Generator.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// BreakerGenerator stops calling a failing generator for a while. Every
// failure, including a rejected call, surfaces as GeneratorUnavailable.
type BreakerGenerator struct {
	next Generator
	cb   *gobreaker.CircuitBreaker[*Result]
}

// NewBreakerGenerator wraps next in a circuit breaker that opens after
// FailureThreshold consecutive failures.
func NewBreakerGenerator(next Generator, cfg BreakerConfig, logger *zap.Logger) *BreakerGenerator {
	if cfg.Name == "" {
		cfg.Name = "generator"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a generator failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("generator breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerGenerator{next: next, cb: cb}
}

func (b *BreakerGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	result, err := b.cb.Execute(func() (*Result, error) {
		return b.next.Generate(ctx, req)
	})
	if err != nil {
		return nil, apperrors.NewGeneratorUnavailable(err)
	}
	return result, nil
}

// State reports the breaker state, for readiness checks.
func (b *BreakerGenerator) State() gobreaker.State {
	return b.cb.State()
}
