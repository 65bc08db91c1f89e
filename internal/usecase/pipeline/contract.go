package pipeline

import (
	"context"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/intent"
	"github.com/kailas-cloud/shopqa/internal/usecase/rerank"
	"github.com/kailas-cloud/shopqa/internal/usecase/response"
	"github.com/kailas-cloud/shopqa/internal/usecase/retrieval"
)

// DocumentSource exposes the indexed documents.
type DocumentSource interface {
	All() []domain.Document
}

// Rewriter reformulates vague queries. It must not fail.
type Rewriter interface {
	Rewrite(ctx context.Context, query string) domain.RewriteResult
}

// IntentDetector derives filter criteria from a query.
type IntentDetector interface {
	DetectIntent(query string) (domain.FilterCriteria, intent.Category)
}

// Retriever scores candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, candidates []domain.Document, opts retrieval.Options) retrieval.Outcome
}

// Reranker re-scores retrieval results.
type Reranker interface {
	Enabled() bool
	PoolSize() int
	Rerank(ctx context.Context, query string, docs []domain.ScoredDocument, topK int) rerank.Outcome
}

// Generator produces the answer from retrieved context.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResponse, error)
}

// Processor is the final response safety net.
type Processor interface {
	Process(resp domain.Response) response.Result
}
