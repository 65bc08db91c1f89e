package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/lexicon"
)

var quantityQuestion = regexp.MustCompile(
	`\b(hoeveel|hoe groot|hoe zwaar|hoe lang|hoe breed|hoe hoog|prijs|kost|kosten|liter|inhoud|maat|afmeting\w*|gewicht|how much|how many|price|cost|size)\b`)

// FallbackAnswer builds a deterministic answer from the top document: the sentence with
// the highest overlap with the query's content words, preferring sentences with numbers
// for quantity and price questions.
func FallbackAnswer(query string, docs []domain.ScoredDocument) string {
	if len(docs) == 0 {
		return ""
	}
	top := docs[0]

	sentence := bestSentence(query, top.Content)
	if sentence == "" {
		return ""
	}
	if title := strings.TrimSpace(top.Metadata.Title); title != "" {
		return fmt.Sprintf("Op basis van onze productinformatie over %s: %s", title, sentence)
	}
	return "Op basis van onze productinformatie: " + sentence
}

func bestSentence(query, content string) string {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return ""
	}

	words := make(map[string]bool)
	for _, w := range lexicon.Expand(lexicon.ContentWords(query)) {
		words[w] = true
	}
	wantsNumber := quantityQuestion.MatchString(lexicon.Normalize(query))

	best, bestScore := 0, -1.0
	for i, s := range sentences {
		score := 0.0
		for _, tok := range lexicon.Tokenize(s) {
			if words[tok] {
				score++
			}
		}
		if wantsNumber && lexicon.HasNumber(s) {
			score += 0.5
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	out := sentences[best]
	if !strings.ContainsAny(out[len(out)-1:], ".!?") {
		out += "."
	}
	return out
}

// splitSentences splits on . ! ? followed by whitespace or end, keeping decimals like 10.5 intact.
func splitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	start := 0
	for i, r := range runes {
		end := r == '\n'
		if r == '.' || r == '!' || r == '?' {
			end = i+1 == len(runes) || unicode.IsSpace(runes[i+1])
		}
		if !end {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}
