package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Chain tries a primary content provider and falls back to a secondary one
// with the identical prompt contract. A circuit breaker on the primary lets
// a known-down provider short-circuit straight to the fallback.
type Chain struct {
	primary  ContentClient
	fallback ContentClient
	breaker  *CircuitBreaker
	logger   *zap.Logger
}

// NewChain creates a provider chain. fallback may be nil, in which case only
// the primary is attempted.
func NewChain(primary, fallback ContentClient, logger *zap.Logger) *Chain {
	return &Chain{
		primary:  primary,
		fallback: fallback,
		breaker:  NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		logger:   logger.Named("llm-chain"),
	}
}

// GenerateContent implements ContentClient. On any primary failure the
// fallback is attempted; if both fail the returned error names both
// providers' failures.
func (c *Chain) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var primaryErr error

	if allowed, allowErr := c.breaker.Allow(); allowed {
		result, err := c.primary.GenerateContent(ctx, req)
		if err == nil {
			c.breaker.RecordSuccess()
			return result, nil
		}
		c.breaker.RecordFailure()
		primaryErr = err
	} else {
		primaryErr = allowErr
	}

	if c.fallback == nil {
		return nil, ClassifyError(primaryErr, c.primary.ProviderName())
	}

	c.logger.Warn("primary provider failed, trying fallback",
		zap.String("primary", c.primary.ProviderName()),
		zap.String("fallback", c.fallback.ProviderName()),
		zap.Error(primaryErr))

	result, fallbackErr := c.fallback.GenerateContent(ctx, req)
	if fallbackErr == nil {
		return result, nil
	}

	combined := fmt.Errorf("all providers failed: %s: %v; %s: %v",
		c.primary.ProviderName(), primaryErr,
		c.fallback.ProviderName(), fallbackErr)

	// Retryable only when both branches failed transiently.
	retryable := IsRetryable(ClassifyError(primaryErr, c.primary.ProviderName())) &&
		IsRetryable(ClassifyError(fallbackErr, c.fallback.ProviderName()))

	return nil, NewError(ErrorTypeEndpoint, "all providers failed", retryable, combined)
}

// ProviderName implements ContentClient.
func (c *Chain) ProviderName() string {
	if c.fallback != nil {
		return fmt.Sprintf("%s+%s", c.primary.ProviderName(), c.fallback.ProviderName())
	}
	return c.primary.ProviderName()
}

// Breaker exposes the primary provider's circuit breaker for observability.
func (c *Chain) Breaker() *CircuitBreaker {
	return c.breaker
}

var _ ContentClient = (*Chain)(nil)
