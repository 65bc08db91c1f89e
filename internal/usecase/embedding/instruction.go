package embedding

import (
	"context"
	"strings"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// WithInstruction prefixes every text with instruction and one space. Instruction-tuned
// models want different prefixes for indexed documents and for questions, e.g.
// "passage:" and "query:". A blank instruction returns inner unchanged.
func WithInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return inner
	}
	return &instructed{inner: inner, prefix: instruction + " "}
}

type instructed struct {
	inner  domain.Embedder
	prefix string
}

func (e *instructed) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return e.inner.Embed(ctx, e.prefix+strings.TrimSpace(text))
}
