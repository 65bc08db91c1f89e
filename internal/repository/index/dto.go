package index

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

const fileVersion = 1

type fileDTO struct {
	Version   int      `json:"version"`
	Documents []docDTO `json:"documents"`
}

type docDTO struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Embedding []float32   `json:"embedding,omitempty"`
	Metadata  metadataDTO `json:"metadata"`
}

type metadataDTO struct {
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	Importance string   `json:"importance"`
	Keywords   []string `json:"keywords,omitempty"`
	ProductID  string   `json:"product_id,omitempty"`
	Category   string   `json:"category,omitempty"`
}

func toDTO(d *domain.Document) docDTO {
	return docDTO{
		ID:        d.ID,
		Content:   d.Content,
		Embedding: d.Embedding,
		Metadata: metadataDTO{
			Title:      d.Metadata.Title,
			Type:       d.Metadata.Type,
			Importance: string(d.Metadata.Importance),
			Keywords:   d.Metadata.Keywords,
			ProductID:  d.Metadata.ProductID,
			Category:   d.Metadata.Category,
		},
	}
}

func (d *docDTO) toDomain() domain.Document {
	id := d.ID
	if id == "" {
		id = domain.DocumentID(d.Content)
	}
	return domain.Document{
		ID:        id,
		Content:   d.Content,
		Embedding: d.Embedding,
		Metadata: domain.Metadata{
			Title:      d.Metadata.Title,
			Type:       d.Metadata.Type,
			Importance: domain.ParseImportance(d.Metadata.Importance),
			Keywords:   d.Metadata.Keywords,
			ProductID:  d.Metadata.ProductID,
			Category:   d.Metadata.Category,
		},
	}
}

// decodeFile accepts either a bare array of documents or {"documents": [...]}.
func decodeFile(data []byte) ([]docDTO, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var docs []docDTO
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
		}
		return docs, nil
	case '{':
		var f fileDTO
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
		}
		return f.Documents, nil
	default:
		return nil, fmt.Errorf("%w: unexpected leading byte %q", domain.ErrIndexCorrupt, trimmed[0])
	}
}

func encodeFile(docs []domain.Document) ([]byte, error) {
	f := fileDTO{Version: fileVersion, Documents: make([]docDTO, len(docs))}
	for i := range docs {
		f.Documents[i] = toDTO(&docs[i])
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	return data, nil
}
