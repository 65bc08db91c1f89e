package intent

import (
	"regexp"
	"sort"
)

// Category is a detected query intent. It doubles as the document type filter.
type Category string

// Intent categories in default priority order.
const (
	CategoryNone       Category = ""
	CategorySafety     Category = "safety"
	CategoryTechnical  Category = "technical"
	CategoryFeature    Category = "feature"
	CategoryComparison Category = "comparison"
	CategoryPrice      Category = "price"
	CategoryFAQ        Category = "faq"
)

// Rule maps a pattern over the normalized query to a category.
// Lower Priority wins.
type Rule struct {
	Category Category
	Pattern  *regexp.Regexp
	Priority int
}

// DefaultRules returns the built-in Dutch and English rule table.
// Patterns match lexicon-normalized text (lowercase, no diacritics).
func DefaultRules() []Rule {
	return []Rule{
		{CategorySafety, regexp.MustCompile(
			`\b(veilig\w*|gevaar\w*|kinderen|kind|brand\w*|giftig|waarschuwing\w*|safe|safety|danger\w*|warning|toxic)\b`), 10},
		{CategoryTechnical, regexp.MustCompile(
			`\b(afmeting\w*|maat|maten|gewicht|liter|inhoud|volume|hoogte|breedte|diepte|cm|mm|kg|materiaal|specificatie\w*|dimensions?|size|weight|capacity|material|specs?)\b`), 20},
		{CategoryFeature, regexp.MustCompile(
			`\b(functie\w*|kenmerk\w*|eigenschap\w*|deksel|pedaal|sensor|soft ?close|features?|heeft (het|hij|ze)|kan (het|hij|ze))\b`), 30},
		{CategoryComparison, regexp.MustCompile(
			`\b(verschil\w*|vergelijk\w*|beter|versus|vs|compare|comparison|difference|between)\b`), 40},
		{CategoryPrice, regexp.MustCompile(
			`\b(prijs|prijzen|kost|kosten|euro|goedkoop|duur|korting|aanbieding|price|cost|cheap|discount)\b`), 50},
		{CategoryFAQ, regexp.MustCompile(
			`\b(levering|lever\w*|bezorg\w*|verzend\w*|retour\w*|garantie|betal\w*|ruil\w*|shipping|delivery|return\w*|warranty|payment)\b`), 60},
	}
}

func sortRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
