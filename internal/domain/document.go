package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 32768

// Importance ranks a document for filtering and keyword boosting.
type Importance string

// Importance levels, lowest first.
const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// Rank returns the ordinal of the level. Unknown levels rank as low.
func (i Importance) Rank() int {
	switch i {
	case ImportanceCritical:
		return 3
	case ImportanceHigh:
		return 2
	case ImportanceMedium:
		return 1
	default:
		return 0
	}
}

// Valid reports whether i is a known level.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh, ImportanceCritical:
		return true
	}
	return false
}

// ParseImportance normalizes s, mapping unknown values to low.
func ParseImportance(s string) Importance {
	imp := Importance(strings.ToLower(strings.TrimSpace(s)))
	if !imp.Valid() {
		return ImportanceLow
	}
	return imp
}

// Metadata describes a product knowledge document.
type Metadata struct {
	Title      string
	Type       string
	Importance Importance
	Keywords   []string
	ProductID  string
	Category   string
}

// Document is an indexed knowledge record. Owned by the index; stages work on copies.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  Metadata
}

// Validate checks the invariants required for indexing.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("document %s: content is required", d.ID)
	}
	if len(d.Content) > MaxContentSize {
		return fmt.Errorf("document %s: content too large (max %d bytes)", d.ID, MaxContentSize)
	}
	return nil
}

// DocumentID derives a stable identifier from content so re-ingestion deduplicates.
func DocumentID(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:8])
}

// ScoredDocument is a per-request projection of a Document with a transient score.
type ScoredDocument struct {
	Document
	Score float64
	Rank  int
}

// SortByScore orders best first. Equal scores fall back to ID so results are stable across runs.
func SortByScore(scored []ScoredDocument) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
}

// Rerank assigns 1-based ranks in slice order.
func Rerank(scored []ScoredDocument) {
	for i := range scored {
		scored[i].Rank = i + 1
	}
}
