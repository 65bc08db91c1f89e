package retrieval

import (
	"github.com/kailas-cloud/shopqa/internal/domain"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// fuseRRF merges the similarity and keyword rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) over each ranking where d appears.
func fuseRRF(semantic, lexical []domain.ScoredDocument, k int) []domain.ScoredDocument {
	if k <= 0 {
		k = DefaultRRFK
	}

	merged := make(map[string]*domain.ScoredDocument, len(semantic)+len(lexical))
	order := make([]string, 0, len(semantic)+len(lexical))

	add := func(list []domain.ScoredDocument) {
		for rank, d := range list {
			s := 1.0 / float64(k+rank+1)
			if existing, ok := merged[d.ID]; ok {
				existing.Score += s
				continue
			}
			cp := d
			cp.Score = s
			merged[d.ID] = &cp
			order = append(order, d.ID)
		}
	}
	add(semantic)
	add(lexical)

	out := make([]domain.ScoredDocument, 0, len(merged))
	for _, id := range order {
		out = append(out, *merged[id])
	}
	domain.SortByScore(out)
	return out
}
