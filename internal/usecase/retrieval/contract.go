package retrieval

import (
	"context"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// Embedder vectorizes the query for the similarity channel.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
