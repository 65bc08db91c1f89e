// Package lexicon holds the text normalization shared by the embedder,
// the keyword retriever and the intent filter.
package lexicon

import (
	"strings"
	"unicode"
)

var foldReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "ä", "a", "â", "a",
	"é", "e", "è", "e", "ë", "e", "ê", "e",
	"í", "i", "ì", "i", "ï", "i", "î", "i",
	"ó", "o", "ò", "o", "ö", "o", "ô", "o",
	"ú", "u", "ù", "u", "ü", "u", "û", "u",
	"ç", "c", "ñ", "n", "ĳ", "ij",
)

// Normalize lowercases, folds common diacritics and replaces punctuation with spaces.
// Decimal separators between digits are kept and unified to a dot ("10,5" -> "10.5").
func Normalize(text string) string {
	text = foldReplacer.Replace(strings.ToLower(text))
	runes := []rune(text)

	var b strings.Builder
	b.Grow(len(text))
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case (r == '.' || r == ',') && i > 0 && i+1 < len(runes) &&
			unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			b.WriteByte('.')
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Tokenize returns normalized tokens in input order.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// ContentWords returns tokens with stop-words and single letters removed.
// Numbers are always kept.
func ContentWords(text string) []string {
	tokens := Tokenize(text)
	out := tokens[:0]
	for _, t := range tokens {
		if IsStopWord(t) {
			continue
		}
		if len([]rune(t)) < 2 && !isNumeric(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Expand appends synonyms of each word, deduplicated, originals first.
func Expand(words []string) []string {
	seen := make(map[string]bool, len(words)*2)
	out := make([]string, 0, len(words)*2)
	add := func(w string) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, w := range words {
		add(w)
	}
	for _, w := range words {
		for _, s := range synonyms[w] {
			add(s)
		}
	}
	return out
}

// HasNumber reports whether text contains a digit.
func HasNumber(text string) bool {
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}

func isNumeric(t string) bool {
	for _, r := range t {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return t != ""
}
