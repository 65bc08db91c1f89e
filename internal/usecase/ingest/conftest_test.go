package ingest

import (
	"context"
	"errors"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

type mockIndex struct {
	docs []domain.Document
	ids  map[string]bool
	err  error
}

func (m *mockIndex) AddDocuments(docs []domain.Document) (int, error) {
	if m.ids == nil {
		m.ids = map[string]bool{}
	}
	added := 0
	for _, d := range docs {
		if m.ids[d.ID] {
			continue
		}
		m.ids[d.ID] = true
		m.docs = append(m.docs, d)
		added++
	}
	return added, m.err
}

type mockEmbedder struct {
	fail string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.fail != "" && len(text) >= len(m.fail) && text[:len(m.fail)] == m.fail {
		return domain.EmbeddingResult{}, errors.New("embed failed")
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}
