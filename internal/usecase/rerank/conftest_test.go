package rerank

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

type mockScorer struct {
	scores []float64
	err    error
	block  bool
	texts  []string
}

func (m *mockScorer) Score(ctx context.Context, _ string, texts []string) ([]float64, error) {
	m.texts = texts
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.scores, nil
}

func candidates(n int) []domain.ScoredDocument {
	out := make([]domain.ScoredDocument, n)
	for i := range out {
		out[i] = domain.ScoredDocument{
			Document: domain.Document{ID: fmt.Sprintf("d%d", i), Content: fmt.Sprintf("inhoud %d", i)},
			Score:    float64(n - i),
			Rank:     i + 1,
		}
	}
	return out
}

func ids(docs []domain.ScoredDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
