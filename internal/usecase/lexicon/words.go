package lexicon

// IsStopWord reports whether a normalized token carries no retrieval signal.
func IsStopWord(token string) bool {
	return stopWords[token]
}

var stopWords = toSet(
	// Dutch
	"de", "het", "een", "en", "of", "is", "zijn", "ben", "bent", "was", "waren", "wordt", "worden",
	"ik", "je", "jij", "u", "we", "wij", "ze", "zij", "hij", "mijn", "jouw", "uw", "ons", "onze",
	"dit", "dat", "deze", "die", "er", "hier", "daar", "van", "voor", "met", "op", "in", "aan",
	"bij", "naar", "om", "te", "tot", "uit", "over", "door", "als", "dan", "maar", "ook", "nog",
	"al", "wel", "niet", "geen", "heb", "hebt", "heeft", "hebben", "kan", "kun", "kunt", "kunnen",
	"wil", "wilt", "willen", "zal", "zou", "moet", "mag", "hoe", "wat", "wie", "waar", "wanneer",
	"welke", "welk", "waarom", "hoeveel", "graag", "even", "eens", "zo", "dus", "toch",
	// English
	"the", "a", "an", "and", "or", "are", "be", "been", "to", "of", "for", "with", "on", "at",
	"by", "from", "it", "its", "this", "that", "these", "those", "i", "you", "my", "your",
	"what", "which", "who", "how", "when", "where", "why", "do", "does", "did", "can", "could",
	"would", "should", "will", "please", "much", "many",
)

// synonyms is the fixed expansion table for product Q&A vocabulary.
var synonyms = map[string][]string{
	"afvalbak":    {"prullenbak", "vuilnisbak", "bak"},
	"prullenbak":  {"afvalbak", "vuilnisbak", "bak"},
	"vuilnisbak":  {"afvalbak", "prullenbak", "bak"},
	"liter":       {"l", "inhoud", "volume"},
	"inhoud":      {"liter", "volume", "capaciteit"},
	"groot":       {"afmeting", "formaat", "inhoud"},
	"afmeting":    {"afmetingen", "formaat", "maat", "cm"},
	"afmetingen":  {"afmeting", "formaat", "maat", "cm"},
	"prijs":       {"kosten", "euro", "kost"},
	"kost":        {"prijs", "kosten", "euro"},
	"kosten":      {"prijs", "euro", "kost"},
	"goedkoop":    {"prijs", "korting", "aanbieding"},
	"levering":    {"bezorging", "verzending", "levertijd"},
	"bezorging":   {"levering", "verzending", "levertijd"},
	"verzending":  {"levering", "bezorging", "verzendkosten"},
	"retour":      {"retourneren", "terugsturen", "ruilen"},
	"retourneren": {"retour", "terugsturen", "ruilen"},
	"garantie":    {"waarborg", "defect", "reparatie"},
	"materiaal":   {"rvs", "kunststof", "staal", "gemaakt"},
	"schoonmaken": {"reinigen", "onderhoud", "wassen"},
	"reinigen":    {"schoonmaken", "onderhoud"},
	"veilig":      {"veiligheid", "kinderen", "kindveilig"},
	"veiligheid":  {"veilig", "kindveilig", "waarschuwing"},
	"gewicht":     {"kg", "zwaar", "weegt"},
	"kleur":       {"kleuren", "zwart", "wit"},
	"deksel":      {"klep", "sluiting"},
	"pedaal":      {"voetpedaal", "trap"},
	"size":        {"dimensions", "capacity", "liter"},
	"price":       {"cost", "euro", "prijs"},
	"delivery":    {"shipping", "levering"},
	"warranty":    {"guarantee", "garantie"},
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
