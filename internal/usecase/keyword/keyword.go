// Package keyword scores documents by lexical overlap with the query.
package keyword

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/lexicon"
)

// Score weights per matched query word.
const (
	contentWeight = 1.0
	titleWeight   = 3.0
	keywordWeight = 2.0
)

// Match is a keyword hit with the query words that contributed to it.
type Match struct {
	domain.ScoredDocument
	MatchedWords int
}

// Terms returns the synonym-expanded content words of query.
func Terms(query string) []string {
	return lexicon.Expand(lexicon.ContentWords(query))
}

// Search scores docs against the query and returns up to k matches with
// score > 0 and >= minScore, best first. Ties break by document ID.
func Search(query string, docs []domain.Document, k int, minScore float64) []Match {
	terms := Terms(query)
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	matches := make([]Match, 0, len(docs))
	for i := range docs {
		score, matched := scoreDocument(terms, &docs[i])
		if score <= 0 || score < minScore {
			continue
		}
		matches = append(matches, Match{
			ScoredDocument: domain.ScoredDocument{Document: docs[i], Score: score},
			MatchedWords:   matched,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches
}

func scoreDocument(terms []string, d *domain.Document) (float64, int) {
	content := tokenCounts(d.Content)
	title := tokenCounts(d.Metadata.Title)
	keywords := make(map[string]bool, len(d.Metadata.Keywords))
	for _, kw := range d.Metadata.Keywords {
		keywords[strings.TrimSpace(lexicon.Normalize(kw))] = true
	}

	var score float64
	matched := 0
	for _, term := range terms {
		s := contentWeight*float64(content[term]) + titleWeight*float64(title[term])
		if keywords[term] {
			s += keywordWeight
		}
		if s > 0 {
			matched++
			score += s
		}
	}
	return score * multiplier(d.Metadata.Importance), matched
}

func tokenCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, t := range lexicon.Tokenize(text) {
		counts[t]++
	}
	return counts
}

func multiplier(imp domain.Importance) float64 {
	switch imp {
	case domain.ImportanceCritical:
		return 2
	case domain.ImportanceHigh:
		return 1.5
	default:
		return 1
	}
}

// Substring is the last-resort channel: documents whose title or content contains any
// query content word, in input order with a score of matched words.
func Substring(query string, docs []domain.Document, k int) []Match {
	words := lexicon.ContentWords(query)
	if len(words) == 0 || k <= 0 {
		return nil
	}

	var out []Match
	for i := range docs {
		haystack := lexicon.Normalize(docs[i].Metadata.Title + " " + docs[i].Content)
		matched := 0
		for _, w := range words {
			if strings.Contains(haystack, w) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		out = append(out, Match{
			ScoredDocument: domain.ScoredDocument{Document: docs[i], Score: float64(matched)},
			MatchedWords:   matched,
		})
		if len(out) == k {
			break
		}
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
