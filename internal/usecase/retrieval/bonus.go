package retrieval

import (
	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/keyword"
)

// fuseBonus layers keyword evidence onto similarity:
// score = cosine + wordBonus*matchedWords + dualBonus if the document is in both top sets.
// similarity holds the cosine for every scanned candidate; semanticTop the IDs of the
// similarity top set.
func fuseBonus(
	similarity map[string]float64, semanticTop map[string]bool,
	byID map[string]domain.Document, lexical []keyword.Match,
	wordBonus, dualBonus float64,
) []domain.ScoredDocument {
	matched := make(map[string]int, len(lexical))
	for _, m := range lexical {
		matched[m.ID] = m.MatchedWords
	}

	ids := make([]string, 0, len(semanticTop)+len(matched))
	seen := make(map[string]bool, cap(ids))
	for id := range semanticTop {
		ids = append(ids, id)
		seen[id] = true
	}
	for _, m := range lexical {
		if !seen[m.ID] {
			ids = append(ids, m.ID)
			seen[m.ID] = true
		}
	}

	out := make([]domain.ScoredDocument, 0, len(ids))
	for _, id := range ids {
		score := similarity[id] + wordBonus*float64(matched[id])
		if semanticTop[id] && matched[id] > 0 {
			score += dualBonus
		}
		out = append(out, domain.ScoredDocument{Document: byID[id], Score: score})
	}
	domain.SortByScore(out)
	return out
}
