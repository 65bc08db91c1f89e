// Package index is the in-process document index: a capped, file-persisted
// collection of product documents with cosine-similarity search.
package index

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/metrics"
)

// Defaults for Config zero values.
const (
	DefaultMaxDocuments = 1000
	DefaultScanLimit    = 500
)

// Config holds index limits and the persistence path. Empty Path disables persistence.
type Config struct {
	Path         string
	MaxDocuments int
	ScanLimit    int
}

// Vectorizer backfills embeddings for documents persisted without one.
type Vectorizer func(text string) []float32

// Option configures an Index.
type Option func(*Index)

// WithVectorizer sets the embedding backfill function.
func WithVectorizer(v Vectorizer) Option {
	return func(ix *Index) { ix.vectorize = v }
}

// Index holds documents in insertion order. Reads are concurrent; mutations are serialized.
type Index struct {
	mu        sync.RWMutex
	cfg       Config
	docs      []domain.Document
	ids       map[string]struct{}
	warnings  []string
	savedHash [sha256.Size]byte
	vectorize Vectorizer
	logger    *zap.Logger
}

// New creates an empty index. Call Load to read the persisted file.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Index {
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = DefaultMaxDocuments
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultScanLimit
	}
	ix := &Index{
		cfg:    cfg,
		ids:    make(map[string]struct{}),
		logger: logger,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Open creates an index and loads the persisted file.
func Open(cfg Config, logger *zap.Logger, opts ...Option) *Index {
	ix := New(cfg, logger, opts...)
	ix.Load()
	return ix
}

// Load replaces the in-memory state with the persisted file.
// A missing or malformed file yields an empty index with a warning, never an error.
func (ix *Index) Load() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.loadLocked()
}

// Reload re-reads the file if its content differs from what this process last wrote or read.
// Returns true when the in-memory state was replaced.
func (ix *Index) Reload() bool {
	if ix.cfg.Path == "" {
		return false
	}
	data, err := os.ReadFile(ix.cfg.Path)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if sum == ix.savedHash {
		return false
	}
	ix.loadLocked()
	return true
}

func (ix *Index) loadLocked() {
	ix.docs = nil
	ix.ids = make(map[string]struct{})
	ix.warnings = nil

	if ix.cfg.Path == "" {
		ix.updateGauge()
		return
	}

	data, err := os.ReadFile(ix.cfg.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ix.warn("index file unreadable, starting empty", zap.Error(err))
		}
		ix.updateGauge()
		return
	}
	ix.savedHash = sha256.Sum256(data)

	dtos, err := decodeFile(data)
	if err != nil {
		ix.warn("index file malformed, starting empty", zap.Error(err))
		ix.updateGauge()
		return
	}

	for i := range dtos {
		if len(ix.docs) >= ix.cfg.MaxDocuments {
			ix.warn(fmt.Sprintf("index file holds %d documents, truncated to first %d",
				len(dtos), ix.cfg.MaxDocuments),
				zap.Int("total", len(dtos)), zap.Int("max_documents", ix.cfg.MaxDocuments))
			break
		}
		doc := dtos[i].toDomain()
		ix.appendLocked(&doc)
	}

	ix.logger.Info("Document index loaded",
		zap.String("path", ix.cfg.Path),
		zap.Int("documents", len(ix.docs)),
	)
	ix.updateGauge()
}

// appendLocked validates, dedupes and appends. Returns false when the document was skipped.
func (ix *Index) appendLocked(doc *domain.Document) bool {
	if err := doc.Validate(); err != nil {
		ix.logger.Warn("Skipping invalid document", zap.Error(err))
		return false
	}
	if _, dup := ix.ids[doc.ID]; dup {
		return false
	}
	if len(doc.Embedding) == 0 && ix.vectorize != nil {
		doc.Embedding = ix.vectorize(doc.Metadata.Title + "\n" + doc.Content)
	}
	ix.ids[doc.ID] = struct{}{}
	ix.docs = append(ix.docs, *doc)
	return true
}

// AddDocuments appends new documents in order, skipping duplicates by ID, and persists.
// Documents beyond MaxDocuments are dropped with a warning. Returns the number added.
func (ix *Index) AddDocuments(docs []domain.Document) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	added := 0
	dropped := 0
	for i := range docs {
		if len(ix.docs) >= ix.cfg.MaxDocuments {
			dropped = len(docs) - i
			break
		}
		doc := docs[i]
		if ix.appendLocked(&doc) {
			added++
		}
	}
	if dropped > 0 {
		ix.warn(fmt.Sprintf("index full, dropped %d documents", dropped),
			zap.Int("dropped", dropped), zap.Int("max_documents", ix.cfg.MaxDocuments))
	}
	ix.updateGauge()

	if added == 0 {
		return 0, nil
	}
	if err := ix.persistLocked(); err != nil {
		return added, err
	}
	return added, nil
}

// Clear removes every document and persists the empty index.
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.docs = nil
	ix.ids = make(map[string]struct{})
	ix.warnings = nil
	ix.updateGauge()
	return ix.persistLocked()
}

// Search scores documents against vec and returns the top k with score >= minScore.
// Only the first ScanLimit documents are scanned. Ties are broken by ID.
func (ix *Index) Search(vec []float32, k int, minScore float64) []domain.ScoredDocument {
	if k <= 0 || len(vec) == 0 {
		return nil
	}
	ix.mu.RLock()
	scored := domain.ScanSimilarity(vec, ix.docs, ix.cfg.ScanLimit)
	ix.mu.RUnlock()

	results := scored[:0]
	for _, d := range scored {
		if d.Score >= minScore {
			results = append(results, d)
		}
	}
	domain.SortByScore(results)
	if len(results) > k {
		results = results[:k]
	}
	domain.Rerank(results)
	return results
}

// All returns a snapshot of indexed documents in insertion order.
// Embedding slices are shared and must be treated as read-only.
func (ix *Index) All() []domain.Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]domain.Document, len(ix.docs))
	copy(out, ix.docs)
	return out
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}


// Path returns the persistence path.
func (ix *Index) Path() string { return ix.cfg.Path }

// Warnings returns warnings raised by the last load or mutation.
func (ix *Index) Warnings() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, len(ix.warnings))
	copy(out, ix.warnings)
	return out
}

// persistLocked writes the index atomically (temp file + rename).
func (ix *Index) persistLocked() error {
	if ix.cfg.Path == "" {
		return nil
	}
	data, err := encodeFile(ix.docs)
	if err != nil {
		return err
	}

	dir := filepath.Dir(ix.cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.json")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, ix.cfg.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename index: %w", err)
	}
	ix.savedHash = sha256.Sum256(data)
	return nil
}

func (ix *Index) warn(msg string, fields ...zap.Field) {
	ix.warnings = append(ix.warnings, msg)
	ix.logger.Warn(msg, append(fields, zap.String("path", ix.cfg.Path))...)
}

func (ix *Index) updateGauge() {
	metrics.IndexDocuments.Set(float64(len(ix.docs)))
}
