package retrieval

import (
	"context"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/embedding"
)

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type blockingEmbedder struct{}

func (blockingEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	<-ctx.Done()
	return domain.EmbeddingResult{}, ctx.Err()
}

// corpus returns product documents embedded with the local embedder.
func corpus() []domain.Document {
	local := embedding.NewLocalEmbedder(0)
	docs := []domain.Document{
		{
			ID:      "inhoud",
			Content: "De afvalbak heeft een inhoud van 10.5 liter.",
			Metadata: domain.Metadata{
				Title: "Inhoud afvalbak", Type: "technical",
				Importance: domain.ImportanceHigh, Keywords: []string{"liter", "inhoud"},
			},
		},
		{
			ID:      "levering",
			Content: "Bestellingen worden binnen 2 werkdagen geleverd.",
			Metadata: domain.Metadata{
				Title: "Levertijd", Type: "faq",
				Importance: domain.ImportanceMedium, Keywords: []string{"levering"},
			},
		},
		{
			ID:      "garantie",
			Content: "Op alle afvalbakken zit 5 jaar garantie.",
			Metadata: domain.Metadata{
				Title: "Garantie", Type: "faq",
				Importance: domain.ImportanceMedium, Keywords: []string{"garantie"},
			},
		},
	}
	for i := range docs {
		docs[i].Embedding = local.Vector(docs[i].Metadata.Title + " " + docs[i].Content)
	}
	return docs
}
