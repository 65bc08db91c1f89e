package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// InstrumentedEmbedder charges embedding tokens to the request and rejects vectors
// whose width differs from the index. Transport metrics live in transport/openai.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	dims   int
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. dims of 0 accepts any width.
// provider and model are attached to every log line.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, dims int, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		dims:   dims,
		logger: logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed delegates to the inner embedder.
func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := e.inner.Embed(ctx, text)
	elapsed := time.Since(start)
	if err != nil {
		e.logger.Warn("Embedding failed",
			zap.Int("text_runes", len([]rune(text))),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	// Tokens were spent even if the vector turns out unusable.
	domain.UsageFromContext(ctx).AddEmbedding(result.TotalTokens)

	if e.dims > 0 && len(result.Embedding) != e.dims {
		e.logger.Error("Embedding width mismatch",
			zap.Int("expected", e.dims),
			zap.Int("got", len(result.Embedding)),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %d dimensions, index expects %d: %w",
			len(result.Embedding), e.dims, domain.ErrInvalidResponse)
	}

	e.logger.Debug("Embedding done",
		zap.Duration("duration", elapsed),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}
