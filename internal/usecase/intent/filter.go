// Package intent narrows the candidate set by detected query intent.
package intent

import (
	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/lexicon"
)

// Detector evaluates a rule table in priority order.
type Detector struct {
	rules []Rule
}

// NewDetector creates a detector. Nil rules means DefaultRules.
func NewDetector(rules []Rule) *Detector {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Detector{rules: sortRules(rules)}
}

// DetectIntent returns criteria for the first matching rule: its category as the
// type filter with a medium importance floor. No match yields empty criteria.
func (d *Detector) DetectIntent(query string) (domain.FilterCriteria, Category) {
	normalized := lexicon.Normalize(query)
	for _, r := range d.rules {
		if r.Pattern.MatchString(normalized) {
			return domain.FilterCriteria{
				Types:         []string{string(r.Category)},
				MinImportance: domain.ImportanceMedium,
			}, r.Category
		}
	}
	return domain.FilterCriteria{}, CategoryNone
}

// Outcome is the result of Filter.
type Outcome struct {
	Documents    []domain.Document
	FallbackUsed bool
	// Relaxed names the criteria level that produced Documents: "full", "product" or "none".
	Relaxed string
}

// Filter applies criteria to docs. It never returns an empty set when docs is non-empty:
// if the full criteria eliminate everything, a product-only filter is tried (when a
// product is set) and finally the unfiltered set is returned with FallbackUsed.
func Filter(criteria domain.FilterCriteria, docs []domain.Document) Outcome {
	if criteria.IsEmpty() || len(docs) == 0 {
		return Outcome{Documents: docs, Relaxed: "none"}
	}

	if out := apply(criteria, docs); len(out) > 0 {
		return Outcome{Documents: out, Relaxed: "full"}
	}

	if len(criteria.ProductIDs) > 0 {
		productOnly := domain.FilterCriteria{ProductIDs: criteria.ProductIDs}
		if out := apply(productOnly, docs); len(out) > 0 {
			return Outcome{Documents: out, FallbackUsed: true, Relaxed: "product"}
		}
	}

	return Outcome{Documents: docs, FallbackUsed: true, Relaxed: "none"}
}

func apply(criteria domain.FilterCriteria, docs []domain.Document) []domain.Document {
	out := make([]domain.Document, 0, len(docs))
	for i := range docs {
		if criteria.Matches(&docs[i]) {
			out = append(out, docs[i])
		}
	}
	return out
}
