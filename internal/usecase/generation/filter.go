package generation

import (
	"regexp"
	"strings"
)

// minTemplateLine is the shortest template line treated as a verbatim leak.
const minTemplateLine = 24

var leakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[\s*(signature|timestamp)\s*:[^\]\n]*\]?`),
	regexp.MustCompile(`<{2,}[^<>\n]*>{2,}`),
	regexp.MustCompile(`(?i)\b(end_)?(context|history|question|query)\s+id=[0-9a-f-]+`),
	regexp.MustCompile(`(?im)^[ \t]*#{2,}[ \t]*(systeeminstructies|instructies|instructions|system|regels|rules|voorbeelden|examples)\b[^\n]*$`),
	// Leftovers: unclosed or bare delimiter runs and uppercase section names.
	regexp.MustCompile(`<{2,}|>{2,}`),
	regexp.MustCompile(`\b(END_)?(CONTEXT|HISTORY|QUESTION|QUERY)\b`),
}

// OutputFilter strips structural prompt markers and verbatim template text from model output.
type OutputFilter struct {
	templateLines []*regexp.Regexp
}

// NewOutputFilter creates a filter that also removes long lines of the given templates.
func NewOutputFilter(templates ...string) *OutputFilter {
	f := &OutputFilter{}
	for _, t := range templates {
		for _, line := range strings.Split(t, "\n") {
			line = strings.TrimSpace(line)
			if len(line) >= minTemplateLine {
				f.templateLines = append(f.templateLines, templateLinePattern(line))
			}
		}
	}
	return f
}

// Apply returns the cleaned text and whether anything besides whitespace was removed.
func (f *OutputFilter) Apply(text string) (string, bool) {
	clean := tidy(text)

	out := text
	for _, p := range f.templateLines {
		out = p.ReplaceAllString(out, "")
	}
	for _, p := range leakPatterns {
		out = p.ReplaceAllString(out, "")
	}
	out = tidy(out)
	return out, out != clean
}

// templateLinePattern matches line case-insensitively with any whitespace run
// between its words.
func templateLinePattern(line string) *regexp.Regexp {
	words := strings.Fields(line)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(words, `\s+`))
}

// tidy trims lines and collapses blank runs.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
