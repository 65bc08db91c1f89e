// Package ingest loads raw product documents into the document index.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// RawDocument is the ingestion file record.
type RawDocument struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	ContentHTML string   `json:"content_html"`
	Type        string   `json:"type"`
	Importance  string   `json:"importance"`
	Keywords    []string `json:"keywords"`
	ProductID   string   `json:"product_id"`
	Category    string   `json:"category"`
}

// Report summarizes one ingestion run.
type Report struct {
	Read     int      `json:"read"`
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	Embedded int      `json:"embedded"`
	Warnings []string `json:"warnings,omitempty"`
}

type indexWriter interface {
	AddDocuments(docs []domain.Document) (int, error)
}

// Service converts raw records into documents and appends them to the index.
type Service struct {
	index    indexWriter
	embedder domain.Embedder
	logger   *zap.Logger
}

// New creates an ingestion service. embedder may be nil: the index then vectorizes locally.
func New(index indexWriter, embedder domain.Embedder, logger *zap.Logger) *Service {
	return &Service{index: index, embedder: embedder, logger: logger}
}

// IngestFile ingests a JSON file.
func (s *Service) IngestFile(ctx context.Context, path string) (Report, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return s.Ingest(ctx, f)
}

// Ingest parses r and indexes every convertible record.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (Report, error) {
	raws, err := Parse(r)
	if err != nil {
		return Report{}, err
	}

	docs, rep := s.Build(ctx, raws)
	added, err := s.index.AddDocuments(docs)
	rep.Added = added
	rep.Skipped += len(docs) - added
	if err != nil {
		return rep, fmt.Errorf("add documents: %w", err)
	}

	s.logger.Info("Ingestion completed",
		zap.Int("read", rep.Read),
		zap.Int("added", rep.Added),
		zap.Int("skipped", rep.Skipped),
		zap.Int("embedded", rep.Embedded),
	)
	return rep, nil
}

// Parse accepts a JSON array of records or an object with a "documents" array.
func Parse(r io.Reader) ([]RawDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '{' {
		var wrapped struct {
			Documents []RawDocument `json:"documents"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parse documents: %w", err)
		}
		return wrapped.Documents, nil
	}

	var raws []RawDocument
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse documents: %w", err)
	}
	return raws, nil
}

// Build converts records into documents. Records without usable content are skipped.
// Embedding failures leave the vector empty so the index can backfill it.
func (s *Service) Build(ctx context.Context, raws []RawDocument) ([]domain.Document, Report) {
	rep := Report{Read: len(raws)}
	docs := make([]domain.Document, 0, len(raws))

	for i, raw := range raws {
		doc, err := convert(raw)
		if err != nil {
			rep.Skipped++
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("record %d: %v", i, err))
			continue
		}

		if s.embedder != nil {
			res, err := s.embedder.Embed(ctx, doc.Metadata.Title+"\n"+doc.Content)
			if err != nil {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("record %d: embedding failed: %v", i, err))
				s.logger.Warn("Document embedding failed", zap.String("id", doc.ID), zap.Error(err))
			} else {
				doc.Embedding = res.Embedding
				rep.Embedded++
			}
		}
		docs = append(docs, doc)
	}
	return docs, rep
}

func convert(raw RawDocument) (domain.Document, error) {
	content := strings.TrimSpace(raw.Content)
	title := strings.TrimSpace(raw.Title)
	if raw.ContentHTML != "" {
		if title == "" {
			title = htmlTitle(raw.ContentHTML)
		}
		if content == "" {
			text, err := htmlToText(raw.ContentHTML)
			if err != nil {
				return domain.Document{}, fmt.Errorf("convert html: %w", err)
			}
			content = text
		}
	}
	if content == "" {
		return domain.Document{}, fmt.Errorf("no content")
	}
	if len(content) > domain.MaxContentSize {
		return domain.Document{}, fmt.Errorf("content too large (%d bytes)", len(content))
	}

	typ := strings.ToLower(strings.TrimSpace(raw.Type))
	if typ == "" {
		typ = "general"
	}
	keywords := make([]string, 0, len(raw.Keywords))
	for _, k := range raw.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}

	return domain.Document{
		ID:      domain.DocumentID(content),
		Content: content,
		Metadata: domain.Metadata{
			Title:      title,
			Type:       typ,
			Importance: domain.ParseImportance(raw.Importance),
			Keywords:   keywords,
			ProductID:  strings.TrimSpace(raw.ProductID),
			Category:   strings.TrimSpace(raw.Category),
		},
	}, nil
}
