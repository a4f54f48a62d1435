package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"agentos/internal/domain"
	"agentos/internal/infra/config"
)

// CircuitBreakerProvider wraps a domain.LLMProvider with a circuit breaker.
// When the hosted provider fails repeatedly the breaker opens and calls
// fail fast, so the translator drops into its deterministic fallback
// instead of waiting on timeouts.
type CircuitBreakerProvider struct {
	inner   domain.LLMProvider
	breaker *gobreaker.CircuitBreaker[*domain.GenerateResponse]
	logger  *slog.Logger
}

// NewCircuitBreakerProvider wraps provider with a circuit breaker built
// from cfg.
func NewCircuitBreakerProvider(provider domain.LLMProvider, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerProvider {
	log := logger.With("component", "llm.breaker", "provider", provider.Name())

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}

	settings := gobreaker.Settings{
		Name:        "llm:" + provider.Name(),
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &CircuitBreakerProvider{
		inner:   provider,
		breaker: gobreaker.NewCircuitBreaker[*domain.GenerateResponse](settings),
		logger:  log,
	}
}

// Name returns the wrapped provider's name.
func (p *CircuitBreakerProvider) Name() string { return p.inner.Name() }

// Generate executes the wrapped provider's Generate through the breaker.
// An open breaker maps to domain.ErrAgentUnavailable so callers treat it
// like any other provider outage.
func (p *CircuitBreakerProvider) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	resp, err := p.breaker.Execute(func() (*domain.GenerateResponse, error) {
		return p.inner.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s circuit open", domain.ErrAgentUnavailable, p.inner.Name())
		}
		return nil, err
	}
	return resp, nil
}
