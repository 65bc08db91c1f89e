package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// InstrumentedCompleter enforces the token budget and records usage around a Completer.
// Transport metrics are recorded by the backend clients.
type InstrumentedCompleter struct {
	inner    domain.Completer
	budget   *Budget
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedCompleter wraps inner. budget may be nil.
func NewInstrumentedCompleter(
	inner domain.Completer, budget *Budget, provider, model string, logger *zap.Logger,
) *InstrumentedCompleter {
	return &InstrumentedCompleter{inner: inner, budget: budget, provider: provider, model: model, logger: logger}
}

// Complete checks the budget, delegates and records consumed tokens.
func (c *InstrumentedCompleter) Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error) {
	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			return domain.CompletionResult{}, err
		}
	}

	start := time.Now()
	result, err := c.inner.Complete(ctx, req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("Completion request failed",
			zap.String("provider", c.provider),
			zap.String("model", c.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
	}

	tokens := result.PromptTokens + result.CompletionTokens
	if c.budget != nil {
		c.budget.Record(int64(tokens))
	}
	domain.UsageFromContext(ctx).AddGeneration(tokens)

	c.logger.Debug("Completion request completed",
		zap.String("provider", c.provider),
		zap.String("model", result.Model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
	)
	return result, nil
}

// NoopCompleter is the offline backend: every call reports ErrBackendUnavailable.
type NoopCompleter struct{}

// Complete always fails.
func (NoopCompleter) Complete(context.Context, domain.Completion) (domain.CompletionResult, error) {
	return domain.CompletionResult{}, fmt.Errorf("generation disabled: %w", domain.ErrBackendUnavailable)
}
